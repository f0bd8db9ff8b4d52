package entitystore

import (
	"context"
	"fmt"

	"meshmeta/internal/gateway/entity"
	"meshmeta/internal/gateway/repository/docstore"
)

// Stores holds one Store per entity kind.
type Stores struct {
	Services         *Store[entity.Service]
	Microservices    *Store[entity.Microservice]
	Functions        *Store[entity.Function]
	Endpoints        *Store[entity.Endpoint]
	Roles            *Store[entity.Role]
	SecurityPolicies *Store[entity.SecurityPolicy]
	ActiveObjects    *Store[entity.ActiveObject]
	FunctionStates   *Store[entity.FunctionState]
	FunctionResults  *Store[entity.FunctionResult]
	EndpointStates   *Store[entity.EndpointState]
}

func open[T any](ctx context.Context, db docstore.DB, name, keyField, kind string, keyOf func(*T) string) (*Store[T], error) {
	coll, err := db.Collection(ctx, name, keyField)
	if err != nil {
		return nil, fmt.Errorf("open %s collection: %w", name, err)
	}
	return New(coll, kind, keyOf), nil
}

// Open creates (or attaches to) every collection in db.
func Open(ctx context.Context, db docstore.DB) (*Stores, error) {
	if db == nil {
		return nil, fmt.Errorf("document store is nil")
	}
	var (
		s   Stores
		err error
	)
	if s.Services, err = open(ctx, db, "services", "service_id", entity.KindService,
		func(v *entity.Service) string { return v.ServiceID }); err != nil {
		return nil, err
	}
	if s.Microservices, err = open(ctx, db, "microservices", "microservice_id", entity.KindMicroservice,
		func(v *entity.Microservice) string { return v.MicroserviceID }); err != nil {
		return nil, err
	}
	if s.Functions, err = open(ctx, db, "functions", "function_id", entity.KindFunction,
		func(v *entity.Function) string { return v.FunctionID }); err != nil {
		return nil, err
	}
	if s.Endpoints, err = open(ctx, db, "endpoints", "endpoint_id", entity.KindEndpoint,
		func(v *entity.Endpoint) string { return v.EndpointID }); err != nil {
		return nil, err
	}
	if s.Roles, err = open(ctx, db, "roles", "name", entity.KindRole,
		func(v *entity.Role) string { return v.Name }); err != nil {
		return nil, err
	}
	if s.SecurityPolicies, err = open(ctx, db, "security_policies", "policy_id", entity.KindSecurityPolicy,
		func(v *entity.SecurityPolicy) string { return v.PolicyID }); err != nil {
		return nil, err
	}
	if s.ActiveObjects, err = open(ctx, db, "active_objects", "active_object_id", entity.KindActiveObject,
		func(v *entity.ActiveObject) string { return v.ActiveObjectID }); err != nil {
		return nil, err
	}
	if s.FunctionStates, err = open(ctx, db, "function_states", "state_id", entity.KindFunctionState,
		func(v *entity.FunctionState) string { return v.StateID }); err != nil {
		return nil, err
	}
	if s.FunctionResults, err = open(ctx, db, "function_results", "result_id", entity.KindFunctionResult,
		func(v *entity.FunctionResult) string { return v.ResultID }); err != nil {
		return nil, err
	}
	if s.EndpointStates, err = open(ctx, db, "endpoint_states", "state_id", entity.KindEndpointState,
		func(v *entity.EndpointState) string { return v.StateID }); err != nil {
		return nil, err
	}
	return &s, nil
}

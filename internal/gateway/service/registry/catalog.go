package registry

import (
	"context"
	"errors"
	"fmt"

	"meshmeta/internal/gateway/entity"
	"meshmeta/internal/gateway/repository/entitystore"
	"meshmeta/internal/gateway/service/deploy"
)

// ---------------------------------------------------------------------------
// Services
// ---------------------------------------------------------------------------

// CreateService ignores any caller-supplied membership; the list is only
// written when microservices are created, moved or deleted.
func (s *Service) CreateService(ctx context.Context, in entity.Service) (*entity.Service, error) {
	in.Normalize()
	in.ServiceID = s.idOrNew(in.ServiceID)
	in.Microservices = []string{}
	if err := in.Validate(s.limits); err != nil {
		return nil, err
	}
	return s.stores.Services.Create(ctx, &in)
}

func (s *Service) GetService(ctx context.Context, id string) (*entity.Service, error) {
	return s.stores.Services.Get(ctx, entity.NormalizeKey(id))
}

func (s *Service) ListServices(ctx context.Context) ([]entity.Service, error) {
	return s.stores.Services.List(ctx)
}

func (s *Service) UpdateService(ctx context.Context, id string, patch entity.ServicePatch) (*entity.Service, error) {
	if err := patch.Validate(s.limits); err != nil {
		return nil, err
	}
	return s.stores.Services.Update(ctx, entity.NormalizeKey(id), entitystore.Set(patch.Fields()))
}

// DeleteService does not cascade; member microservices keep their service_id.
func (s *Service) DeleteService(ctx context.Context, id string) error {
	return s.stores.Services.Delete(ctx, entity.NormalizeKey(id))
}

// ---------------------------------------------------------------------------
// Microservices
// ---------------------------------------------------------------------------

// CreateMicroservice stores the microservice and then registers it with its
// service. A missing service leaves the microservice orphaned.
func (s *Service) CreateMicroservice(ctx context.Context, in entity.Microservice) (*entity.Microservice, error) {
	in.Normalize()
	in.MicroserviceID = s.idOrNew(in.MicroserviceID)
	in.Functions = []string{}
	if err := in.Validate(s.limits); err != nil {
		return nil, err
	}
	out, err := s.stores.Microservices.Create(ctx, &in)
	if err != nil {
		return nil, err
	}
	if err := addMember(ctx, s.stores.Services, out.ServiceID, "microservices", out.MicroserviceID); err != nil {
		s.warnMembership("create", "microservice", out.MicroserviceID, "service", out.ServiceID, err)
	}
	return out, nil
}

func (s *Service) GetMicroservice(ctx context.Context, id string) (*entity.Microservice, error) {
	return s.stores.Microservices.Get(ctx, entity.NormalizeKey(id))
}

func (s *Service) ListMicroservices(ctx context.Context) ([]entity.Microservice, error) {
	return s.stores.Microservices.List(ctx)
}

// UpdateMicroservice moves the membership reference when service_id changes:
// pulled from the old service, then added to the new one.
func (s *Service) UpdateMicroservice(ctx context.Context, id string, patch entity.MicroservicePatch) (*entity.Microservice, error) {
	if err := patch.Validate(s.limits); err != nil {
		return nil, err
	}
	id = entity.NormalizeKey(id)
	before, err := s.stores.Microservices.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	after, err := s.stores.Microservices.Update(ctx, id, entitystore.Set(patch.Fields()))
	if err != nil {
		return nil, err
	}
	if before.ServiceID == after.ServiceID {
		return after, nil
	}
	if before.ServiceID != "" {
		if err := removeMember(ctx, s.stores.Services, before.ServiceID, "microservices", id); err != nil {
			s.warnMembership("reparent", "microservice", id, "service", before.ServiceID, err)
		}
	}
	if err := addMember(ctx, s.stores.Services, after.ServiceID, "microservices", id); err != nil {
		s.warnMembership("reparent", "microservice", id, "service", after.ServiceID, err)
	}
	return after, nil
}

// DeleteMicroservice unlinks the microservice from its service first. A
// failed unlink does not block the delete.
func (s *Service) DeleteMicroservice(ctx context.Context, id string) error {
	id = entity.NormalizeKey(id)
	current, err := s.stores.Microservices.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.ServiceID != "" {
		if err := removeMember(ctx, s.stores.Services, current.ServiceID, "microservices", id); err != nil {
			s.warnMembership("delete", "microservice", id, "service", current.ServiceID, err)
		}
	}
	return s.stores.Microservices.Delete(ctx, id)
}

// ---------------------------------------------------------------------------
// Functions
// ---------------------------------------------------------------------------

func (s *Service) CreateFunction(ctx context.Context, in entity.Function) (*entity.Function, error) {
	in.Normalize()
	in.FunctionID = s.idOrNew(in.FunctionID)
	if err := in.Validate(s.limits); err != nil {
		return nil, err
	}
	out, err := s.stores.Functions.Create(ctx, &in)
	if err != nil {
		return nil, err
	}
	if err := addMember(ctx, s.stores.Microservices, out.MicroserviceID, "functions", out.FunctionID); err != nil {
		s.warnMembership("create", "function", out.FunctionID, "microservice", out.MicroserviceID, err)
	}
	return out, nil
}

func (s *Service) GetFunction(ctx context.Context, id string) (*entity.Function, error) {
	return s.stores.Functions.Get(ctx, entity.NormalizeKey(id))
}

func (s *Service) ListFunctions(ctx context.Context) ([]entity.Function, error) {
	return s.stores.Functions.List(ctx)
}

func (s *Service) UpdateFunction(ctx context.Context, id string, patch entity.FunctionPatch) (*entity.Function, error) {
	if err := patch.Validate(s.limits); err != nil {
		return nil, err
	}
	id = entity.NormalizeKey(id)
	before, err := s.stores.Functions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	after, err := s.stores.Functions.Update(ctx, id, entitystore.Set(patch.Fields()))
	if err != nil {
		return nil, err
	}
	if before.MicroserviceID == after.MicroserviceID {
		return after, nil
	}
	if before.MicroserviceID != "" {
		if err := removeMember(ctx, s.stores.Microservices, before.MicroserviceID, "functions", id); err != nil {
			s.warnMembership("reparent", "function", id, "microservice", before.MicroserviceID, err)
		}
	}
	if err := addMember(ctx, s.stores.Microservices, after.MicroserviceID, "functions", id); err != nil {
		s.warnMembership("reparent", "function", id, "microservice", after.MicroserviceID, err)
	}
	return after, nil
}

func (s *Service) DeleteFunction(ctx context.Context, id string) error {
	id = entity.NormalizeKey(id)
	current, err := s.stores.Functions.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.MicroserviceID != "" {
		if err := removeMember(ctx, s.stores.Microservices, current.MicroserviceID, "functions", id); err != nil {
			s.warnMembership("delete", "function", id, "microservice", current.MicroserviceID, err)
		}
	}
	return s.stores.Functions.Delete(ctx, id)
}

// ---------------------------------------------------------------------------
// Endpoints
// ---------------------------------------------------------------------------

// checkPolicy fails with NotFound when a non-empty policy reference does not
// resolve.
func (s *Service) checkPolicy(ctx context.Context, policyID string) error {
	if policyID == "" {
		return nil
	}
	if _, err := s.stores.SecurityPolicies.Get(ctx, policyID); err != nil {
		return fmt.Errorf("endpoint security policy: %w", err)
	}
	return nil
}

func (s *Service) CreateEndpoint(ctx context.Context, in entity.Endpoint) (*entity.Endpoint, error) {
	in.Normalize()
	in.EndpointID = s.idOrNew(in.EndpointID)
	if err := in.Validate(s.limits); err != nil {
		return nil, err
	}
	if err := s.checkPolicy(ctx, in.SecurityPolicy); err != nil {
		return nil, err
	}
	return s.stores.Endpoints.Create(ctx, &in)
}

func (s *Service) GetEndpoint(ctx context.Context, id string) (*entity.Endpoint, error) {
	return s.stores.Endpoints.Get(ctx, entity.NormalizeKey(id))
}

func (s *Service) ListEndpoints(ctx context.Context) ([]entity.Endpoint, error) {
	return s.stores.Endpoints.List(ctx)
}

func (s *Service) UpdateEndpoint(ctx context.Context, id string, patch entity.EndpointPatch) (*entity.Endpoint, error) {
	if err := patch.Validate(s.limits); err != nil {
		return nil, err
	}
	if patch.SecurityPolicy != nil {
		if err := s.checkPolicy(ctx, entity.NormalizeKey(*patch.SecurityPolicy)); err != nil {
			return nil, err
		}
	}
	return s.stores.Endpoints.Update(ctx, entity.NormalizeKey(id), entitystore.Set(patch.Fields()))
}

func (s *Service) DeleteEndpoint(ctx context.Context, id string) error {
	return s.stores.Endpoints.Delete(ctx, entity.NormalizeKey(id))
}

// SummonEndpoint creates the endpoint and asks the orchestrator to start it.
// If the deploy fails the endpoint record is deleted again; a failure of that
// delete is logged and the deploy error is returned.
func (s *Service) SummonEndpoint(ctx context.Context, in entity.Endpoint) (*entity.Endpoint, error) {
	created, err := s.CreateEndpoint(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.deployer.Deploy(ctx, deploy.RequestFor(created)); err != nil {
		if !errors.Is(err, deploy.ErrDeployFailed) {
			err = fmt.Errorf("%w: %v", deploy.ErrDeployFailed, err)
		}
		if delErr := s.stores.Endpoints.Delete(context.WithoutCancel(ctx), created.EndpointID); delErr != nil {
			s.log.Errorw("rollback of undeployed endpoint failed",
				"endpoint_id", created.EndpointID,
				"error", delErr,
			)
		} else {
			s.log.Infow("endpoint removed after failed deploy", "endpoint_id", created.EndpointID)
		}
		return nil, err
	}
	s.log.Infow("endpoint deployed", "endpoint_id", created.EndpointID, "image", created.Image)
	return created, nil
}

package rpc

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"meshmeta/internal/gateway/api"
	"meshmeta/internal/gateway/entity"
)

func (h *Handler) mountCatalog(mux *http.ServeMux, opts []connect.HandlerOption) {
	mountCRUD(mux, api.ServiceService, crud[entity.Service, entity.ServicePatch]{
		create: h.reg.CreateService,
		get:    h.reg.GetService,
		list:   h.reg.ListServices,
		update: h.reg.UpdateService,
		remove: h.reg.DeleteService,
	}, opts)
	mountCRUD(mux, api.MicroserviceService, crud[entity.Microservice, entity.MicroservicePatch]{
		create: h.reg.CreateMicroservice,
		get:    h.reg.GetMicroservice,
		list:   h.reg.ListMicroservices,
		update: h.reg.UpdateMicroservice,
		remove: h.reg.DeleteMicroservice,
	}, opts)
	mountCRUD(mux, api.FunctionService, crud[entity.Function, entity.FunctionPatch]{
		create: h.reg.CreateFunction,
		get:    h.reg.GetFunction,
		list:   h.reg.ListFunctions,
		update: h.reg.UpdateFunction,
		remove: h.reg.DeleteFunction,
	}, opts)
	mountCRUD(mux, api.EndpointService, crud[entity.Endpoint, entity.EndpointPatch]{
		create: h.reg.CreateEndpoint,
		get:    h.reg.GetEndpoint,
		list:   h.reg.ListEndpoints,
		update: h.reg.UpdateEndpoint,
		remove: h.reg.DeleteEndpoint,
	}, opts)

	// Summon deploys after create and removes the endpoint again if the
	// orchestrator refuses it.
	unary(mux, api.Procedure(api.EndpointService, api.MethodSummon), func(ctx context.Context, in *entity.Endpoint) (*entity.Endpoint, error) {
		return h.reg.SummonEndpoint(ctx, *in)
	}, opts)
}

func (h *Handler) mountSecurity(mux *http.ServeMux, opts []connect.HandlerOption) {
	mountCRUD(mux, api.RoleService, crud[entity.Role, entity.RolePatch]{
		create: h.reg.CreateRole,
		get:    h.reg.GetRole,
		list:   h.reg.ListRoles,
		update: h.reg.UpdateRole,
		remove: h.reg.DeleteRole,
	}, opts)
	mountCRUD(mux, api.SecurityPolicyService, crud[entity.SecurityPolicy, entity.SecurityPolicyPatch]{
		create: h.reg.CreateSecurityPolicy,
		get:    h.reg.GetSecurityPolicy,
		list:   h.reg.ListSecurityPolicies,
		update: h.reg.UpdateSecurityPolicy,
		remove: h.reg.DeleteSecurityPolicy,
	}, opts)
}

package rpc

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"meshmeta/internal/gateway/api"
	"meshmeta/internal/gateway/entity"
)

func (h *Handler) mountRecords(mux *http.ServeMux, opts []connect.HandlerOption) {
	mountCRUD(mux, api.FunctionStateService, crud[entity.FunctionState, entity.StatePatch]{
		create: h.reg.CreateFunctionState,
		get:    h.reg.GetFunctionState,
		list:   h.reg.ListFunctionStates,
		update: h.reg.UpdateFunctionState,
		remove: h.reg.DeleteFunctionState,
	}, opts)
	mountCRUD(mux, api.FunctionResultService, crud[entity.FunctionResult, entity.FunctionResultPatch]{
		create: h.reg.CreateFunctionResult,
		get:    h.reg.GetFunctionResult,
		list:   h.reg.ListFunctionResults,
		update: h.reg.UpdateFunctionResult,
		remove: h.reg.DeleteFunctionResult,
	}, opts)
	mountCRUD(mux, api.EndpointStateService, crud[entity.EndpointState, entity.StatePatch]{
		create: h.reg.CreateEndpointState,
		get:    h.reg.GetEndpointState,
		list:   h.reg.ListEndpointStates,
		update: h.reg.UpdateEndpointState,
		remove: h.reg.DeleteEndpointState,
	}, opts)

	byOwner(mux, api.Procedure(api.FunctionStateService, api.MethodListByFunction), h.reg.FunctionStatesOf, opts)
	byOwner(mux, api.Procedure(api.FunctionResultService, api.MethodListByFunction), h.reg.FunctionResultsOf, opts)
	byOwner(mux, api.Procedure(api.EndpointStateService, api.MethodListByEndpoint), h.reg.EndpointStatesOf, opts)
}

func byOwner[T any](mux *http.ServeMux, procedure string, fn func(context.Context, string) ([]T, error), opts []connect.HandlerOption) {
	unary(mux, procedure, func(ctx context.Context, in *api.OwnerRequest) (*api.ListResponse[T], error) {
		if err := requireID("owner_id", in.OwnerID); err != nil {
			return nil, err
		}
		items, err := fn(ctx, in.OwnerID)
		if err != nil {
			return nil, err
		}
		return &api.ListResponse[T]{Items: items}, nil
	}, opts)
}

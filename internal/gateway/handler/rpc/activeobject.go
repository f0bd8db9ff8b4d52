package rpc

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"

	"meshmeta/internal/gateway/api"
	"meshmeta/internal/gateway/entity"
)

func (h *Handler) mountActiveObjects(mux *http.ServeMux, opts []connect.HandlerOption) {
	mountCRUD(mux, api.ActiveObjectService, crud[entity.ActiveObject, entity.ActiveObjectPatch]{
		create: h.reg.CreateActiveObject,
		get:    h.reg.GetActiveObject,
		list:   h.reg.ListActiveObjects,
		update: h.reg.UpdateActiveObject,
		remove: h.reg.DeleteActiveObject,
	}, opts)

	unary(mux, api.Procedure(api.ActiveObjectService, api.MethodGetSchema), func(ctx context.Context, in *api.KeyRequest) (*entity.Schema, error) {
		if err := requireID("id", in.ID); err != nil {
			return nil, err
		}
		return h.reg.GetSchema(ctx, in.ID)
	}, opts)

	unary(mux, api.Procedure(api.ActiveObjectService, api.MethodExtractSchema), func(ctx context.Context, in *api.ExtractSchemaRequest) (*api.ExtractSchemaResponse, error) {
		res := h.reg.ExtractSchema(ctx, in.Code)
		return &api.ExtractSchemaResponse{
			ClassName: res.Schema.ClassName,
			Init:      res.Schema.Init,
			Methods:   res.Schema.Methods,
			Status:    res.Status.String(),
			Reason:    res.Reason,
		}, nil
	}, opts)
}

func (h *Handler) mountHierarchy(mux *http.ServeMux, opts []connect.HandlerOption) {
	unary(mux, api.Procedure(api.HierarchyService, api.MethodGetHierarchy), func(ctx context.Context, _ *emptypb.Empty) (*api.HierarchyResponse, error) {
		services, err := h.tree.Build(ctx)
		if err != nil {
			return nil, err
		}
		return &api.HierarchyResponse{Services: services}, nil
	}, opts)
}

package rpc

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"connectrpc.com/connect"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/emptypb"

	"meshmeta/internal/gateway/api"
	"meshmeta/internal/gateway/entity"
	"meshmeta/internal/gateway/metrics"
	"meshmeta/internal/gateway/service/deploy"
	"meshmeta/internal/gateway/service/hierarchy"
	"meshmeta/internal/gateway/service/registry"
)

// Handler exposes the registry and the hierarchy projector as connect
// procedures.
type Handler struct {
	reg  *registry.Service
	tree *hierarchy.Projector
}

func NewHandler(reg *registry.Service, tree *hierarchy.Projector) *Handler {
	return &Handler{reg: reg, tree: tree}
}

// Mount registers every procedure on mux. The api codec is always added.
func (h *Handler) Mount(mux *http.ServeMux, opts ...connect.HandlerOption) {
	opts = append([]connect.HandlerOption{api.Option()}, opts...)
	h.mountCatalog(mux, opts)
	h.mountSecurity(mux, opts)
	h.mountActiveObjects(mux, opts)
	h.mountRecords(mux, opts)
	h.mountHierarchy(mux, opts)
}

func unary[Req, Res any](mux *http.ServeMux, procedure string, fn func(context.Context, *Req) (*Res, error), opts []connect.HandlerOption) {
	mux.Handle(procedure, connect.NewUnaryHandler(procedure,
		func(ctx context.Context, req *connect.Request[Req]) (*connect.Response[Res], error) {
			out, err := fn(ctx, req.Msg)
			if err != nil {
				return nil, ToConnectError(err)
			}
			return connect.NewResponse(out), nil
		},
		opts...,
	))
}

// crud is the method set every entity kind exposes.
type crud[T, P any] struct {
	create func(context.Context, T) (*T, error)
	get    func(context.Context, string) (*T, error)
	list   func(context.Context) ([]T, error)
	update func(context.Context, string, P) (*T, error)
	remove func(context.Context, string) error
}

func mountCRUD[T, P any](mux *http.ServeMux, service string, c crud[T, P], opts []connect.HandlerOption) {
	unary(mux, api.Procedure(service, api.MethodCreate), func(ctx context.Context, in *T) (*T, error) {
		return c.create(ctx, *in)
	}, opts)
	unary(mux, api.Procedure(service, api.MethodGet), func(ctx context.Context, in *api.KeyRequest) (*T, error) {
		if err := requireID("id", in.ID); err != nil {
			return nil, err
		}
		return c.get(ctx, in.ID)
	}, opts)
	unary(mux, api.Procedure(service, api.MethodList), func(ctx context.Context, _ *emptypb.Empty) (*api.ListResponse[T], error) {
		items, err := c.list(ctx)
		if err != nil {
			return nil, err
		}
		return &api.ListResponse[T]{Items: items}, nil
	}, opts)
	unary(mux, api.Procedure(service, api.MethodUpdate), func(ctx context.Context, in *api.UpdateRequest[P]) (*T, error) {
		if err := requireID("id", in.ID); err != nil {
			return nil, err
		}
		return c.update(ctx, in.ID, in.Patch)
	}, opts)
	unary(mux, api.Procedure(service, api.MethodDelete), func(ctx context.Context, in *api.KeyRequest) (*emptypb.Empty, error) {
		if err := requireID("id", in.ID); err != nil {
			return nil, err
		}
		if err := c.remove(ctx, in.ID); err != nil {
			return nil, err
		}
		return &emptypb.Empty{}, nil
	}, opts)
}

func requireID(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return &entity.ValidationError{Field: field, Reason: "is required"}
	}
	return nil
}

// ToConnectError maps domain errors onto connect codes. Errors that already
// carry a code are returned unchanged.
func ToConnectError(err error) error {
	var ce *connect.Error
	if errors.As(err, &ce) {
		return ce
	}
	code := connect.CodeInternal
	switch {
	case errors.Is(err, entity.ErrNotFound):
		code = connect.CodeNotFound
	case errors.Is(err, entity.ErrAlreadyExists):
		code = connect.CodeAlreadyExists
	case errors.Is(err, entity.ErrValidation):
		code = connect.CodeInvalidArgument
	case errors.Is(err, deploy.ErrDeployFailed):
		code = connect.CodeUnavailable
	case errors.Is(err, context.Canceled):
		code = connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		code = connect.CodeDeadlineExceeded
	}
	return connect.NewError(code, err)
}

// LoggingInterceptor logs one line per RPC. Internal errors are logged at
// error level with the cause.
func LoggingInterceptor(log *zap.SugaredLogger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			fields := []any{
				"procedure", req.Spec().Procedure,
				"code", metrics.CodeLabel(err),
				"duration", time.Since(start),
			}
			switch {
			case err == nil:
				log.Infow("rpc", fields...)
			case connect.CodeOf(err) == connect.CodeInternal || connect.CodeOf(err) == connect.CodeUnknown:
				log.Errorw("rpc", append(fields, "error", err)...)
			default:
				log.Infow("rpc", append(fields, "error", err.Error())...)
			}
			return resp, err
		}
	}
}

package server

import (
	"net/http"

	"connectrpc.com/connect"
	"go.uber.org/zap"

	"meshmeta/internal/gateway/handler/rpc"
	"meshmeta/internal/gateway/metrics"
	"meshmeta/internal/gateway/middleware"
)

func NewMux(rpcHandler *rpc.Handler, registry *metrics.Registry, log *zap.SugaredLogger) http.Handler {
	mux := http.NewServeMux()

	// RPC Handlers
	rpcHandler.Mount(mux, connect.WithInterceptors(
		registry.Interceptor(),
		rpc.LoggingInterceptor(log),
	))

	// Operational Handlers
	mux.Handle("/metrics", registry.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	// Middleware
	return middleware.CORS(mux)
}

package app

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"meshmeta/internal/gateway/config"
	"meshmeta/internal/gateway/handler/rpc"
	"meshmeta/internal/gateway/logging"
	"meshmeta/internal/gateway/metrics"
	"meshmeta/internal/gateway/repository/docstore"
	"meshmeta/internal/gateway/repository/entitystore"
	"meshmeta/internal/gateway/server"
	"meshmeta/internal/gateway/service/deploy"
	"meshmeta/internal/gateway/service/hierarchy"
	"meshmeta/internal/gateway/service/registry"
)

type App struct {
	server *server.Server
	db     docstore.DB
	log    *zap.SugaredLogger
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	db, err := openDocstore(ctx, cfg.Store, log)
	if err != nil {
		return nil, err
	}
	handler, err := Wire(ctx, cfg, db, log)
	if err != nil {
		_ = db.Close(ctx)
		return nil, err
	}
	return &App{
		server: server.New(cfg.Port, handler, log),
		db:     db,
		log:    log,
	}, nil
}

// Wire builds the HTTP handler over an already opened document store.
func Wire(ctx context.Context, cfg *config.Config, db docstore.DB, log *zap.SugaredLogger) (http.Handler, error) {
	stores, err := entitystore.Open(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to open collections: %w", err)
	}

	// Dependencies
	deployer := deploy.New(cfg.Orchestrator.URL, cfg.Orchestrator.Timeout)
	if _, ok := deployer.(deploy.Noop); ok {
		log.Infow("orchestrator not configured; summon accepts every endpoint")
	}
	registrySvc := registry.New(stores, cfg.Limits, deployer, log)
	projector := hierarchy.New(stores)
	rpcHandler := rpc.NewHandler(registrySvc, projector)

	// Routing
	return server.NewMux(rpcHandler, metrics.NewRegistry(), log), nil
}

func (a *App) Logger() *zap.SugaredLogger {
	return a.log
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if cerr := a.db.Close(ctx); cerr != nil && err == nil {
		err = cerr
	}
	_ = a.log.Sync()
	return err
}

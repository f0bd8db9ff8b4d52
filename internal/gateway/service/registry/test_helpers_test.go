package registry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"meshmeta/internal/gateway/entity"
	"meshmeta/internal/gateway/repository/docstore"
	"meshmeta/internal/gateway/repository/entitystore"
	"meshmeta/internal/gateway/service/deploy"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc    *Service
	stores *entitystore.Stores
	logs   *observer.ObservedLogs
}

func newFixture(t *testing.T, deployer deploy.Deployer) *fixture {
	t.Helper()
	stores, err := entitystore.Open(context.Background(), docstore.NewMemory())
	require.NoError(t, err)
	core, logs := observer.New(zapcore.DebugLevel)
	svc := New(stores, entity.DefaultLimits(), deployer, zap.New(core).Sugar())
	svc.now = func() time.Time { return fixedNow }
	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("gen-%d", n)
	}
	return &fixture{svc: svc, stores: stores, logs: logs}
}

func res(cpu int, ram string) entity.Resources {
	return entity.Resources{CPU: cpu, RAM: ram}
}

func ptr[T any](v T) *T { return &v }

// failingUpdates wraps a collection so that every update fails.
type failingUpdates struct {
	docstore.Collection
}

var errInjected = errors.New("injected write failure")

func (failingUpdates) FindOneAndUpdate(context.Context, docstore.Filter, docstore.Update, any) error {
	return errInjected
}

type deployFunc func(ctx context.Context, req deploy.Request) error

func (f deployFunc) Deploy(ctx context.Context, req deploy.Request) error { return f(ctx, req) }

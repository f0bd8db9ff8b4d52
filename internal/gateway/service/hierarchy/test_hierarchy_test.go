package hierarchy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshmeta/internal/gateway/entity"
	"meshmeta/internal/gateway/repository/docstore"
	"meshmeta/internal/gateway/repository/entitystore"
)

func seed(t *testing.T) *entitystore.Stores {
	t.Helper()
	ctx := context.Background()
	stores, err := entitystore.Open(ctx, docstore.NewMemory())
	require.NoError(t, err)

	for _, id := range []string{"s1", "s2"} {
		_, err := stores.Services.Create(ctx, &entity.Service{ServiceID: id, Microservices: []string{}})
		require.NoError(t, err)
	}
	for _, ms := range []entity.Microservice{
		{MicroserviceID: "m1", ServiceID: "s1", Functions: []string{}},
		{MicroserviceID: "m2", ServiceID: "s1", Functions: []string{}},
		{MicroserviceID: "orphan", ServiceID: "gone", Functions: []string{}},
	} {
		ms := ms
		_, err := stores.Microservices.Create(ctx, &ms)
		require.NoError(t, err)
	}
	_, err = stores.ActiveObjects.Create(ctx, &entity.ActiveObject{
		ActiveObjectID: "ao1",
		MicroserviceID: "m1",
		Module:         "proc",
		Schema: &entity.Schema{
			ClassName: "DataProcessor",
			Init:      []string{"source_bucket", "source_key"},
			Methods:   map[string][]string{"run": {"multiplier"}, "flush": {}},
		},
		Functions: []entity.FunctionDescriptor{},
	})
	require.NoError(t, err)
	_, err = stores.ActiveObjects.Create(ctx, &entity.ActiveObject{
		ActiveObjectID: "ao2", MicroserviceID: "m1", Module: "raw", Functions: []entity.FunctionDescriptor{},
	})
	require.NoError(t, err)
	return stores
}

func TestBuild(t *testing.T) {
	tree, err := New(seed(t)).Build(context.Background())
	require.NoError(t, err)

	want := []Service{
		{ServiceID: "s1", Microservices: []Microservice{
			{MicroserviceID: "m1", ActiveObjects: []ActiveObject{
				{ActiveObjectID: "ao1", Module: "proc", ClassName: "DataProcessor", Methods: []Method{
					{Name: "init", Parameters: []string{"source_bucket", "source_key"}},
					{Name: "flush", Parameters: []string{}},
					{Name: "run", Parameters: []string{"multiplier"}},
				}},
				{ActiveObjectID: "ao2", Module: "raw", Methods: []Method{}},
			}},
			{MicroserviceID: "m2", ActiveObjects: []ActiveObject{}},
		}},
		{ServiceID: "s2", Microservices: []Microservice{}},
	}
	assert.Equal(t, want, tree)
}

func TestBuildEmpty(t *testing.T) {
	stores, err := entitystore.Open(context.Background(), docstore.NewMemory())
	require.NoError(t, err)
	tree, err := New(stores).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Service{}, tree)
}

func TestMethodsFromNilSchema(t *testing.T) {
	assert.Equal(t, []Method{}, Methods(nil))
	assert.Equal(t, []Method{{Name: "init", Parameters: []string{}}}, Methods(&entity.Schema{}))
}

package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshmeta/internal/gateway/entity"
	"meshmeta/internal/gateway/repository/docstore"
	"meshmeta/internal/gateway/repository/entitystore"
)

func TestEndToEndMembership(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.CreateRole(ctx, entity.Role{Name: "admin", Permissions: []string{"write", "read"}})
	require.NoError(t, err)
	_, err = f.svc.CreateSecurityPolicy(ctx, entity.SecurityPolicy{PolicyID: "sp1", Roles: []string{"admin"}})
	require.NoError(t, err)
	_, err = f.svc.CreateService(ctx, entity.Service{ServiceID: "svc1", SecurityPolicy: "sp1", Resources: res(2, "2GB")})
	require.NoError(t, err)
	_, err = f.svc.CreateMicroservice(ctx, entity.Microservice{MicroserviceID: "ms1", ServiceID: "svc1", Resources: res(1, "1GB")})
	require.NoError(t, err)

	svc, err := f.svc.GetService(ctx, "svc1")
	require.NoError(t, err)
	assert.Equal(t, []string{"ms1"}, svc.Microservices)

	require.NoError(t, f.svc.DeleteMicroservice(ctx, "ms1"))
	svc, err = f.svc.GetService(ctx, "svc1")
	require.NoError(t, err)
	assert.Equal(t, []string{}, svc.Microservices)

	_, err = f.svc.GetMicroservice(ctx, "ms1")
	require.ErrorIs(t, err, entity.ErrNotFound)
	assert.Zero(t, f.logs.Len(), "no consistency warnings expected")
}

func TestCreateServiceIgnoresSuppliedMembership(t *testing.T) {
	f := newFixture(t, nil)
	out, err := f.svc.CreateService(context.Background(), entity.Service{
		ServiceID:     "s1",
		Resources:     res(1, "1GB"),
		Microservices: []string{"forged"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{}, out.Microservices)
}

func TestReparentMovesExactlyOneReference(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	for _, id := range []string{"s1", "s2"} {
		_, err := f.svc.CreateService(ctx, entity.Service{ServiceID: id, Resources: res(1, "1GB")})
		require.NoError(t, err)
	}
	_, err := f.svc.CreateMicroservice(ctx, entity.Microservice{MicroserviceID: "m", ServiceID: "s1", Resources: res(1, "1GB")})
	require.NoError(t, err)

	out, err := f.svc.UpdateMicroservice(ctx, "m", entity.MicroservicePatch{ServiceID: ptr("s2")})
	require.NoError(t, err)
	assert.Equal(t, "s2", out.ServiceID)

	s1, err := f.svc.GetService(ctx, "s1")
	require.NoError(t, err)
	s2, err := f.svc.GetService(ctx, "s2")
	require.NoError(t, err)
	assert.NotContains(t, s1.Microservices, "m")
	assert.Equal(t, []string{"m"}, s2.Microservices)

	// Repeating the move must not duplicate the reference.
	_, err = f.svc.UpdateMicroservice(ctx, "m", entity.MicroservicePatch{ServiceID: ptr("s2")})
	require.NoError(t, err)
	s2, err = f.svc.GetService(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, []string{"m"}, s2.Microservices)
}

func TestMicroserviceResourceUpdateKeepsMembership(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, err := f.svc.CreateService(ctx, entity.Service{ServiceID: "s1", Resources: res(1, "1GB")})
	require.NoError(t, err)
	_, err = f.svc.CreateMicroservice(ctx, entity.Microservice{MicroserviceID: "m", ServiceID: "s1", Resources: res(1, "1GB")})
	require.NoError(t, err)

	out, err := f.svc.UpdateMicroservice(ctx, "m", entity.MicroservicePatch{Resources: &entity.ResourcesPatch{CPU: ptr(3)}})
	require.NoError(t, err)
	assert.Equal(t, res(3, "1GB"), out.Resources)
	s1, err := f.svc.GetService(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"m"}, s1.Microservices)
}

func TestOrphanMicroserviceIsCreatedAndWarned(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	out, err := f.svc.CreateMicroservice(ctx, entity.Microservice{MicroserviceID: "m", ServiceID: "ghost", Resources: res(1, "1GB")})
	require.NoError(t, err)
	assert.Equal(t, "ghost", out.ServiceID)

	warnings := f.logs.FilterMessage("parent not found; child left unlinked").All()
	require.Len(t, warnings, 1)
	ctxMap := warnings[0].ContextMap()
	assert.Equal(t, "m", ctxMap["microservice_id"])
	assert.Equal(t, "ghost", ctxMap["service_id"])

	require.NoError(t, f.svc.DeleteMicroservice(ctx, "m"))
}

func TestParentWriteFailureDoesNotBlockDelete(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, err := f.svc.CreateService(ctx, entity.Service{ServiceID: "s1", Resources: res(1, "1GB")})
	require.NoError(t, err)
	_, err = f.svc.CreateMicroservice(ctx, entity.Microservice{MicroserviceID: "m", ServiceID: "s1", Resources: res(1, "1GB")})
	require.NoError(t, err)

	db := docstore.NewMemory()
	coll, err := db.Collection(ctx, "services", "service_id")
	require.NoError(t, err)
	f.stores.Services = entitystore.New[entity.Service](failingUpdates{coll}, entity.KindService,
		func(v *entity.Service) string { return v.ServiceID })

	require.NoError(t, f.svc.DeleteMicroservice(ctx, "m"))
	_, err = f.svc.GetMicroservice(ctx, "m")
	require.ErrorIs(t, err, entity.ErrNotFound)

	warnings := f.logs.FilterMessage("parent membership update failed").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "delete", warnings[0].ContextMap()["op"])
}

func TestFunctionMembership(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	for _, id := range []string{"m1", "m2"} {
		_, err := f.svc.CreateMicroservice(ctx, entity.Microservice{MicroserviceID: id, ServiceID: "s", Resources: res(1, "1GB")})
		require.NoError(t, err)
	}
	fn := entity.Function{
		FunctionID:     "fn",
		MicroserviceID: "m1",
		Resources:      res(1, "1GB"),
		Storage:        entity.Storage{Capacity: "10GB", Source: "/in", Sink: "/out"},
	}
	out, err := f.svc.CreateFunction(ctx, fn)
	require.NoError(t, err)
	assert.Equal(t, entity.FunctionPending, out.Status)

	m1, err := f.svc.GetMicroservice(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, []string{"fn"}, m1.Functions)

	_, err = f.svc.UpdateFunction(ctx, "fn", entity.FunctionPatch{MicroserviceID: ptr("m2")})
	require.NoError(t, err)
	m1, _ = f.svc.GetMicroservice(ctx, "m1")
	m2, _ := f.svc.GetMicroservice(ctx, "m2")
	assert.Equal(t, []string{}, m1.Functions)
	assert.Equal(t, []string{"fn"}, m2.Functions)

	require.NoError(t, f.svc.DeleteFunction(ctx, "fn"))
	m2, _ = f.svc.GetMicroservice(ctx, "m2")
	assert.Equal(t, []string{}, m2.Functions)
}

func TestValidationHappensBeforeAnyWrite(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() error
	}{
		{name: "cpu too high", run: func() error {
			_, err := f.svc.CreateService(ctx, entity.Service{ServiceID: "a", Resources: res(5, "1GB")})
			return err
		}},
		{name: "cpu zero", run: func() error {
			_, err := f.svc.CreateService(ctx, entity.Service{ServiceID: "b", Resources: res(0, "1GB")})
			return err
		}},
		{name: "ram too high", run: func() error {
			_, err := f.svc.CreateService(ctx, entity.Service{ServiceID: "c", Resources: res(1, "9GB")})
			return err
		}},
		{name: "ram without unit", run: func() error {
			_, err := f.svc.CreateService(ctx, entity.Service{ServiceID: "d", Resources: res(1, "2")})
			return err
		}},
		{name: "storage without sink", run: func() error {
			_, err := f.svc.CreateFunction(ctx, entity.Function{FunctionID: "e", MicroserviceID: "m", Resources: res(1, "1GB"),
				Storage: entity.Storage{Capacity: "1GB", Source: "/in"}})
			return err
		}},
		{name: "empty role list", run: func() error {
			_, err := f.svc.CreateSecurityPolicy(ctx, entity.SecurityPolicy{PolicyID: "p"})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.run(), entity.ErrValidation)
		})
	}

	services, err := f.svc.ListServices(ctx)
	require.NoError(t, err)
	assert.Empty(t, services)
	fns, err := f.svc.ListFunctions(ctx)
	require.NoError(t, err)
	assert.Empty(t, fns)
}

func TestPartialUpdatePreservesUntouchedFields(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, err := f.svc.CreateService(ctx, entity.Service{ServiceID: "s", SecurityPolicy: "p", Resources: res(2, "2GB")})
	require.NoError(t, err)

	out, err := f.svc.UpdateService(ctx, "s", entity.ServicePatch{Resources: &entity.ResourcesPatch{CPU: ptr(4)}})
	require.NoError(t, err)
	assert.Equal(t, res(4, "2GB"), out.Resources)
	assert.Equal(t, "p", out.SecurityPolicy)

	_, err = f.svc.UpdateService(ctx, "s", entity.ServicePatch{Resources: &entity.ResourcesPatch{RAM: ptr("64GB")}})
	require.ErrorIs(t, err, entity.ErrValidation)
}

func TestGeneratedIdentifiers(t *testing.T) {
	f := newFixture(t, nil)
	out, err := f.svc.CreateService(context.Background(), entity.Service{Resources: res(1, "1GB")})
	require.NoError(t, err)
	assert.Equal(t, "gen-1", out.ServiceID)

	plain := New(f.stores, entity.DefaultLimits(), nil, nil)
	out, err = plain.CreateService(context.Background(), entity.Service{Resources: res(1, "1GB")})
	require.NoError(t, err)
	assert.Len(t, out.ServiceID, 36)
}

func TestNotFoundSymmetry(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.GetService(ctx, "x")
	assert.ErrorIs(t, err, entity.ErrNotFound)
	_, err = f.svc.UpdateService(ctx, "x", entity.ServicePatch{SecurityPolicy: ptr("p")})
	assert.ErrorIs(t, err, entity.ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteService(ctx, "x"), entity.ErrNotFound)
	_, err = f.svc.UpdateMicroservice(ctx, "x", entity.MicroservicePatch{ServiceID: ptr("s")})
	assert.ErrorIs(t, err, entity.ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteMicroservice(ctx, "x"), entity.ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteFunction(ctx, "x"), entity.ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteEndpoint(ctx, "x"), entity.ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteRole(ctx, "x"), entity.ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteSecurityPolicy(ctx, "x"), entity.ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteActiveObject(ctx, "x"), entity.ErrNotFound)
}

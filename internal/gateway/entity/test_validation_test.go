package entity

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateResourcesBounds(t *testing.T) {
	l := DefaultLimits()
	tests := []struct {
		name string
		res  Resources
		ok   bool
	}{
		{name: "lower bounds", res: Resources{CPU: 1, RAM: "1GB"}, ok: true},
		{name: "upper bounds", res: Resources{CPU: 4, RAM: "8GB"}, ok: true},
		{name: "cpu zero", res: Resources{CPU: 0, RAM: "1GB"}},
		{name: "cpu five", res: Resources{CPU: 5, RAM: "1GB"}},
		{name: "ram zero", res: Resources{CPU: 1, RAM: "0GB"}},
		{name: "ram nine", res: Resources{CPU: 1, RAM: "9GB"}},
		{name: "ram megabytes", res: Resources{CPU: 1, RAM: "512MB"}},
		{name: "ram no unit", res: Resources{CPU: 1, RAM: "2"}},
		{name: "ram lowercase", res: Resources{CPU: 1, RAM: "2gb"}},
		{name: "ram empty", res: Resources{CPU: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.ValidateResources(tt.res)
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrValidation)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Contains(t, ve.Field, "resources.")
		})
	}
}

func TestCustomLimits(t *testing.T) {
	l := Limits{MinCPU: 2, MaxCPU: 16, MinRAMGB: 4, MaxRAMGB: 64}
	require.NoError(t, l.ValidateResources(Resources{CPU: 16, RAM: "64GB"}))
	require.ErrorIs(t, l.ValidateResources(Resources{CPU: 1, RAM: "4GB"}), ErrValidation)
	require.ErrorIs(t, l.ValidateResources(Resources{CPU: 2, RAM: "2GB"}), ErrValidation)
}

func TestValidateResourcesPatchChecksOnlyPresentFields(t *testing.T) {
	l := DefaultLimits()
	cpu := 3
	require.NoError(t, l.ValidateResourcesPatch(nil))
	require.NoError(t, l.ValidateResourcesPatch(&ResourcesPatch{CPU: &cpu}))
	bad := "16GB"
	require.ErrorIs(t, l.ValidateResourcesPatch(&ResourcesPatch{CPU: &cpu, RAM: &bad}), ErrValidation)
}

func TestStorageValidate(t *testing.T) {
	ok := Storage{Capacity: "10GB", Source: "/in", Sink: "/out"}
	require.NoError(t, ok.Validate())
	require.NoError(t, Storage{Capacity: "512MB", Source: "s3://a", Sink: "s3://b"}.Validate())

	for _, bad := range []Storage{
		{Capacity: "10TB", Source: "/in", Sink: "/out"},
		{Capacity: "GB", Source: "/in", Sink: "/out"},
		{Capacity: "10GB", Source: " ", Sink: "/out"},
		{Capacity: "10GB", Source: "/in"},
	} {
		assert.ErrorIs(t, bad.Validate(), ErrValidation, "%+v", bad)
	}
}

func TestRoleAndPolicyValidation(t *testing.T) {
	r := Role{Name: " admin ", Permissions: []string{"write", "read", "write"}}
	r.Normalize()
	assert.Equal(t, "admin", r.Name)
	assert.Equal(t, []string{"read", "write"}, r.Permissions)
	require.NoError(t, r.Validate())

	blank := []string{"read", " "}
	require.ErrorIs(t, RolePatch{Permissions: &blank}.Validate(), ErrValidation)

	require.ErrorIs(t, (&SecurityPolicy{PolicyID: "p"}).Validate(), ErrValidation)
	require.ErrorIs(t, (&SecurityPolicy{PolicyID: "p", Roles: []string{"admin", ""}}).Validate(), ErrValidation)
	require.NoError(t, (&SecurityPolicy{PolicyID: "p", Roles: []string{"b", "a"}}).Validate())

	empty := []string{}
	require.ErrorIs(t, SecurityPolicyPatch{Roles: &empty}.Validate(), ErrValidation)
	require.NoError(t, SecurityPolicyPatch{}.Validate())
}

func TestPolicyRolesStoredTrimmedOnCreateAndPatch(t *testing.T) {
	roles := []string{" admin ", "viewer\t"}
	p := SecurityPolicy{PolicyID: " p ", Roles: roles}
	p.Normalize()
	require.NoError(t, p.Validate())
	assert.Equal(t, "p", p.PolicyID)
	assert.Equal(t, []string{"admin", "viewer"}, p.Roles)
	assert.Equal(t, []string{" admin ", "viewer\t"}, roles, "caller slice is left untouched")

	patched := SecurityPolicyPatch{Roles: &roles}.Fields()
	assert.Equal(t, p.Roles, patched["roles"])
}

func TestPatchFieldsUseDottedPaths(t *testing.T) {
	cpu, capacity, status := 2, "5GB", "deployed"
	got := FunctionPatch{
		Resources: &ResourcesPatch{CPU: &cpu},
		Storage:   &StoragePatch{Capacity: &capacity},
		Status:    &status,
	}.Fields()
	assert.Equal(t, Fields{
		"resources.cpu":    2,
		"storage.capacity": "5GB",
		"status":           "deployed",
	}, got)

	assert.Empty(t, ServicePatch{}.Fields())
	assert.Empty(t, MicroservicePatch{Resources: &ResourcesPatch{}}.Fields())
}

func TestEndpointPatchReplacesDeployment(t *testing.T) {
	got := EndpointPatch{Deployment: &Deployment{Env: map[string]string{"A": "1"}}}.Fields()
	assert.Equal(t, Fields{"deployment": Deployment{Env: map[string]string{"A": "1"}}}, got)
}

func TestActiveObjectPatchExcludesDerivedFields(t *testing.T) {
	code := "class A:\n    pass\n"
	p := ActiveObjectPatch{Code: &code}
	assert.True(t, p.HasCode())
	assert.Equal(t, Fields{"code": code}, p.Fields())

	blank := "  "
	assert.False(t, ActiveObjectPatch{Code: &blank}.HasCode())
	v := -1
	require.ErrorIs(t, ActiveObjectPatch{Version: &v}.Validate(), ErrValidation)
}

func TestStatePatchAlwaysRestamps(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, Fields{"timestamp": now}, StatePatch{}.Fields(now))

	st := FunctionState{FunctionID: " fn "}
	st.Normalize(now)
	assert.Equal(t, "fn", st.FunctionID)
	assert.Equal(t, now, st.Timestamp)
	assert.NotNil(t, st.Metadata)
}

func TestNormalizeFillsEmptyLists(t *testing.T) {
	s := Service{ServiceID: " s "}
	s.Normalize()
	assert.Equal(t, "s", s.ServiceID)
	assert.Equal(t, []string{}, s.Microservices)

	f := Function{}
	f.Normalize()
	assert.Equal(t, FunctionPending, f.Status)
}

func TestErrorHelpers(t *testing.T) {
	assert.ErrorIs(t, NotFoundf(KindService, "x"), ErrNotFound)
	assert.ErrorIs(t, AlreadyExistsf(KindRole, "x"), ErrAlreadyExists)
	assert.Equal(t, `validation failed: roles: must contain at least one role`,
		(&SecurityPolicy{}).Validate().Error())
}

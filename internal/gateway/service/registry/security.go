package registry

import (
	"context"

	"meshmeta/internal/gateway/entity"
	"meshmeta/internal/gateway/repository/entitystore"
)

// CreateRole requires a name; roles are addressed by it.
func (s *Service) CreateRole(ctx context.Context, in entity.Role) (*entity.Role, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.stores.Roles.Create(ctx, &in)
}

func (s *Service) GetRole(ctx context.Context, name string) (*entity.Role, error) {
	return s.stores.Roles.Get(ctx, entity.NormalizeKey(name))
}

func (s *Service) ListRoles(ctx context.Context) ([]entity.Role, error) {
	return s.stores.Roles.List(ctx)
}

func (s *Service) UpdateRole(ctx context.Context, name string, patch entity.RolePatch) (*entity.Role, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	return s.stores.Roles.Update(ctx, entity.NormalizeKey(name), entitystore.Set(patch.Fields()))
}

func (s *Service) DeleteRole(ctx context.Context, name string) error {
	return s.stores.Roles.Delete(ctx, entity.NormalizeKey(name))
}

// CreateSecurityPolicy does not check that the named roles exist.
func (s *Service) CreateSecurityPolicy(ctx context.Context, in entity.SecurityPolicy) (*entity.SecurityPolicy, error) {
	in.Normalize()
	in.PolicyID = s.idOrNew(in.PolicyID)
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.stores.SecurityPolicies.Create(ctx, &in)
}

func (s *Service) GetSecurityPolicy(ctx context.Context, id string) (*entity.SecurityPolicy, error) {
	return s.stores.SecurityPolicies.Get(ctx, entity.NormalizeKey(id))
}

func (s *Service) ListSecurityPolicies(ctx context.Context) ([]entity.SecurityPolicy, error) {
	return s.stores.SecurityPolicies.List(ctx)
}

func (s *Service) UpdateSecurityPolicy(ctx context.Context, id string, patch entity.SecurityPolicyPatch) (*entity.SecurityPolicy, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	return s.stores.SecurityPolicies.Update(ctx, entity.NormalizeKey(id), entitystore.Set(patch.Fields()))
}

func (s *Service) DeleteSecurityPolicy(ctx context.Context, id string) error {
	return s.stores.SecurityPolicies.Delete(ctx, entity.NormalizeKey(id))
}

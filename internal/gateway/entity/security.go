package entity

import (
	"sort"
	"strings"
)

const (
	KindRole           = "role"
	KindSecurityPolicy = "security_policy"
)

// Role is referenced by name from SecurityPolicy.Roles. The reference is not
// enforced.
type Role struct {
	Name        string   `bson:"name" json:"name"`
	Description string   `bson:"description" json:"description,omitempty"`
	Permissions []string `bson:"permissions" json:"permissions"`
}

func (r *Role) Normalize() {
	r.Name = NormalizeKey(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	r.Permissions = permissionSet(r.Permissions)
}

func (r *Role) Validate() error {
	return validatePermissions(r.Permissions)
}

type RolePatch struct {
	Description *string   `json:"description,omitempty"`
	Permissions *[]string `json:"permissions,omitempty"`
}

func (p RolePatch) Validate() error {
	if p.Permissions == nil {
		return nil
	}
	return validatePermissions(*p.Permissions)
}

func (p RolePatch) Fields() Fields {
	out := Fields{}
	setString(out, "description", p.Description)
	if p.Permissions != nil {
		out["permissions"] = permissionSet(*p.Permissions)
	}
	return out
}

// permissionSet deduplicates and sorts permissions.
func permissionSet(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, p := range in {
		p = strings.TrimSpace(p)
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func validatePermissions(perms []string) error {
	for _, p := range perms {
		if strings.TrimSpace(p) == "" {
			return invalid("permissions", "must not contain blank entries")
		}
	}
	return nil
}

type SecurityPolicy struct {
	PolicyID               string   `bson:"policy_id" json:"policy_id"`
	Roles                  []string `bson:"roles" json:"roles"`
	RequiresAuthentication bool     `bson:"requires_authentication" json:"requires_authentication"`
}

func (p *SecurityPolicy) Normalize() {
	p.PolicyID = NormalizeKey(p.PolicyID)
	p.Roles = cleanList(p.Roles)
}

func (p *SecurityPolicy) Validate() error {
	return validateRoleNames(p.Roles)
}

type SecurityPolicyPatch struct {
	Roles                  *[]string `json:"roles,omitempty"`
	RequiresAuthentication *bool     `json:"requires_authentication,omitempty"`
}

func (p SecurityPolicyPatch) Validate() error {
	if p.Roles == nil {
		return nil
	}
	return validateRoleNames(*p.Roles)
}

func (p SecurityPolicyPatch) Fields() Fields {
	out := Fields{}
	setStrings(out, "roles", p.Roles)
	if p.RequiresAuthentication != nil {
		out["requires_authentication"] = *p.RequiresAuthentication
	}
	return out
}

// validateRoleNames keeps the caller's order; roles must be non-empty with no
// blank entries.
func validateRoleNames(roles []string) error {
	if len(roles) == 0 {
		return invalid("roles", "must contain at least one role")
	}
	for i, r := range roles {
		if strings.TrimSpace(r) == "" {
			return invalid("roles", "entry %d is blank", i)
		}
	}
	return nil
}

package identity

import "sort"

// Role is the fixed set of roles a company user can hold
type Role string

const (
	RoleOwner   Role = "owner"
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleCashier Role = "cashier"
	RoleSeller  Role = "seller"
)

// PermissionAll grants every permission
const PermissionAll = "*"

// IsValid checks the role against the known values
func (r Role) IsValid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// Rank orders roles by privilege; a user may only manage users of a lower rank
func (r Role) Rank() int {
	switch r {
	case RoleOwner:
		return 5
	case RoleAdmin:
		return 4
	case RoleManager:
		return 3
	case RoleCashier:
		return 2
	case RoleSeller:
		return 1
	}
	return 0
}

var (
	crud = []string{"read", "create", "update", "delete"}

	managerPermissions = merge(
		grant([]string{"product", "seller", "customer", "bill", "printer"}, crud...),
		grant([]string{"sale"}, "read", "create", "update", "cancel"),
		grant([]string{"cash"}, "read", "create", "update", "close"),
		grant([]string{"fiscal"}, "read", "create", "cancel"),
		grant([]string{"notification"}, "read", "create"),
		grant([]string{"report", "user", "company"}, "read"),
	)

	cashierPermissions = merge(
		grant([]string{"product", "seller", "printer", "company"}, "read"),
		grant([]string{"customer"}, "read", "create", "update"),
		grant([]string{"sale"}, "read", "create", "update"),
		grant([]string{"cash"}, "read", "create", "update", "close"),
		grant([]string{"fiscal"}, "read", "create"),
		grant([]string{"notification"}, "create"),
	)

	sellerPermissions = merge(
		grant([]string{"product", "seller", "company"}, "read"),
		grant([]string{"customer"}, "read", "create", "update"),
		grant([]string{"sale"}, "read", "create"),
	)

	rolePermissions = map[Role][]string{
		RoleOwner:   {PermissionAll},
		RoleAdmin:   {PermissionAll},
		RoleManager: managerPermissions,
		RoleCashier: cashierPermissions,
		RoleSeller:  sellerPermissions,
	}
)

// Permissions returns the permission codes ("resource:action") granted to the role
func (r Role) Permissions() []string {
	perms := rolePermissions[r]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// Can reports whether the role grants the permission code
func (r Role) Can(permission string) bool {
	for _, p := range rolePermissions[r] {
		if p == PermissionAll || p == permission {
			return true
		}
	}
	return false
}

func grant(resources []string, actions ...string) []string {
	out := make([]string, 0, len(resources)*len(actions))
	for _, res := range resources {
		for _, act := range actions {
			out = append(out, res+":"+act)
		}
	}
	return out
}

func merge(sets ...[]string) []string {
	seen := make(map[string]struct{})
	for _, set := range sets {
		for _, p := range set {
			seen[p] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

package authz

// Role is a clinic staff role. Values match the role column in the "user"
// table.
type Role string

const (
	RoleOrgAdmin        Role = "ORG_ADMIN"
	RoleClinicalManager Role = "CLINICAL_MANAGER"
	RoleBCBA            Role = "BCBA"
	RoleRBT             Role = "RBT"
	RoleBT              Role = "BT"
	RoleHRManager       Role = "HR_MANAGER"
)

// legacyClinicalDirector is the pre-rename label for CLINICAL_MANAGER. Rows
// written before the rename still carry it, so ParseRole maps it in place.
const legacyClinicalDirector = "CLINICAL_DIRECTOR"

// ParseRole normalizes a stored role string to its canonical Role. Unknown
// strings are returned as-is; they never gain access anywhere because every
// predicate and scope matches on the canonical constants only.
func ParseRole(s string) Role {
	if s == legacyClinicalDirector {
		return RoleClinicalManager
	}
	return Role(s)
}

// IsAdminTier reports whether the role has organization-wide access.
func IsAdminTier(r Role) bool {
	return r == RoleOrgAdmin || r == RoleClinicalManager
}

// IsClinical reports whether the role delivers or supervises therapy and may
// therefore hold patient assignments.
func IsClinical(r Role) bool {
	return r == RoleBCBA || r == RoleRBT || r == RoleBT
}

// IsViewOnlyClinical reports whether the role may read assigned clinical
// records but never modify treatment plans.
func IsViewOnlyClinical(r Role) bool {
	return r == RoleRBT || r == RoleBT
}

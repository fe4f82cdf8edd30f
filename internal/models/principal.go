package models

// Principal is the authenticated caller of a request
type Principal struct {
	UserID int64
	Roles  []string
}

// HasRole reports whether the principal holds role, ignoring case
func (p *Principal) HasRole(role string) bool {
	return hasRole(p.Roles, role)
}

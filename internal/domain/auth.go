package domain

// Identity is the authenticated caller decoded from a bearer token.
type Identity struct {
	UserID string
	Role   Role
}

// IsStaff reports whether the identity belongs to an admin or employee.
func (i *Identity) IsStaff() bool {
	return i != nil && i.Role.IsStaff()
}

// Owns reports whether the identity is the owner referenced by ownerID.
func (i *Identity) Owns(ownerID *string) bool {
	return i != nil && ownerID != nil && *ownerID == i.UserID
}

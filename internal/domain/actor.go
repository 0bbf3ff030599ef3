package domain

// Actor is the authenticated caller. Every mutation is scoped to its tenant.
type Actor struct {
	UserID   string
	TenantID string
}

func (a Actor) Validate() error {
	if a.UserID == "" || a.TenantID == "" {
		return NewValidationError("actor", ErrInvalidActor, "user and tenant are required")
	}
	return nil
}

// Owns reports whether a row belonging to tenantID is visible to the actor.
func (a Actor) Owns(tenantID string) bool {
	return a.TenantID != "" && a.TenantID == tenantID
}

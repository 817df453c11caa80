package domain

import "github.com/witness-org/witness-sub000/internal/auth"

// AuthorizeOwner decides whether the requester may act on an aggregate
// owned by ownerID. The owner may always proceed; ADMIN bypasses ownership.
// Callers resolve existence first: a missing aggregate is a not-found
// condition, never an ownership denial.
func AuthorizeOwner(requesterID, ownerID int64, roles auth.RoleSet) error {
	if requesterID == ownerID {
		return nil
	}
	if roles.Has(auth.RoleAdmin) {
		return nil
	}
	return ErrNotOwner
}

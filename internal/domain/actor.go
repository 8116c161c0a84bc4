package domain

import "fmt"

type Role string

const (
	RoleRenter Role = "RENTER"
	RoleLender Role = "LENDER"
	RoleAdmin  Role = "ADMIN"
	RoleSystem Role = "SYSTEM"
	RoleNone   Role = ""
)

// Actor is threaded explicitly into every command.
type Actor struct {
	UserID  int32
	IsAdmin bool
}

// SystemActor authors automatic transitions such as sibling auto-rejection.
var SystemActor = Actor{}

func (a Actor) IsSystem() bool { return a.UserID == 0 && !a.IsAdmin }

// RoleIn resolves the actor's role relative to a rental. Participation wins
// over the admin flag so an admin renting an item still acts as a renter.
func (a Actor) RoleIn(r *Rental) Role {
	switch {
	case a.IsSystem():
		return RoleSystem
	case a.UserID == r.RenterID:
		return RoleRenter
	case a.UserID == r.LenderID:
		return RoleLender
	case a.IsAdmin:
		return RoleAdmin
	}
	return RoleNone
}

// UserIDPtr returns nil for the system actor, matching nullable actor columns.
func (a Actor) UserIDPtr() *int32 {
	if a.IsSystem() {
		return nil
	}
	id := a.UserID
	return &id
}

func RequireRenter(a Actor, r *Rental) error {
	if a.IsSystem() || a.UserID != r.RenterID {
		return &AuthorizationError{ActorID: a.UserID, Reason: fmt.Sprintf("is not the renter of rental %d", r.ID)}
	}
	return nil
}

func RequireLender(a Actor, r *Rental) error {
	if a.IsSystem() || a.UserID != r.LenderID {
		return &AuthorizationError{ActorID: a.UserID, Reason: fmt.Sprintf("is not the lender of rental %d", r.ID)}
	}
	return nil
}

func RequireParticipant(a Actor, r *Rental) error {
	if a.IsSystem() || (a.UserID != r.RenterID && a.UserID != r.LenderID) {
		return &AuthorizationError{ActorID: a.UserID, Reason: fmt.Sprintf("is not a participant of rental %d", r.ID)}
	}
	return nil
}

func RequireAdmin(a Actor) error {
	if !a.IsAdmin {
		return &AuthorizationError{ActorID: a.UserID, Reason: "is not an administrator"}
	}
	return nil
}

// RequireViewer allows participants and admins to read a rental.
func RequireViewer(a Actor, r *Rental) error {
	if a.RoleIn(r) == RoleNone || a.RoleIn(r) == RoleSystem {
		return &AuthorizationError{ActorID: a.UserID, Reason: fmt.Sprintf("cannot view rental %d", r.ID)}
	}
	return nil
}

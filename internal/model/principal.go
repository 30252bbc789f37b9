package model

import "github.com/google/uuid"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleStaff
}

// Principal is the authenticated caller of a request. For staff the UserID is
// the technician id.
type Principal struct {
	UserID uuid.UUID
	Role   Role
	Name   string
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

func (p Principal) IsStaff() bool {
	return p.Role == RoleStaff
}

// NoteAuthor returns the label written on notes created by this principal.
func (p Principal) NoteAuthor() string {
	if p.Name == "" {
		return DefaultNoteAuthor
	}
	return p.Name
}

package models

import "time"

// Default role assigned to enrolled identities without an explicit role.
const DefaultRole = "Student"

// Identity represents a registered person. The numeric id is allocated by
// the database sequence and doubles as the recognizer training label; it is
// the join key between identities, face samples, and attendance records.
type Identity struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	Role         string    `db:"role" json:"role"`
	RegisteredAt time.Time `db:"registered_at" json:"registered_at"`
}

// IdentityFilter scopes identity listing queries.
type IdentityFilter struct {
	Search   string
	Role     string
	Page     int
	PageSize int
}

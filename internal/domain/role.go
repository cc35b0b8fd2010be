package domain

// Role is the actor class resolved from a verified email.
type Role string

const (
	RoleAdministrator Role = "admin"
	RoleInstructor    Role = "intervenant"
	RoleStudent       Role = "eleve"
)

// Actor is a resolved identity: exactly one role plus the id of the matching
// instructor or student row.
type Actor struct {
	Role Role `json:"role"`
	ID   int  `json:"id"`
}

package domain

type Instructor struct {
	ID        int    `db:"id" json:"id"`
	LastName  string `db:"last_name" json:"last_name"`
	FirstName string `db:"first_name" json:"first_name"`
	Referent  bool   `db:"referent" json:"referent"`
	Email     string `db:"email" json:"email"`
}

func (i Instructor) FullName() string {
	return i.FirstName + " " + i.LastName
}

// InstructorModule records that an instructor owns (can teach) a module.
type InstructorModule struct {
	InstructorID int `db:"instructor_id" json:"instructor_id"`
	ModuleID     int `db:"module_id" json:"module_id"`
}

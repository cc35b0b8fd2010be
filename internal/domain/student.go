package domain

type Student struct {
	ID        int    `db:"id" json:"id"`
	LastName  string `db:"last_name" json:"last_name"`
	FirstName string `db:"first_name" json:"first_name"`
	Email     string `db:"email" json:"email"`
	Track     Track  `db:"track" json:"track"`
}

// Enrollment is a student's declared major/minor pair. At most one row per
// student; saves replace the pair wholesale.
type Enrollment struct {
	StudentID     int `db:"student_id" json:"student_id"`
	MajorModuleID int `db:"major_module_id" json:"major_module_id"`
	MinorModuleID int `db:"minor_module_id" json:"minor_module_id"`
}

package domain

type Module struct {
	ID   int    `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// ModuleOption is one selectable major/minor entry, pre-joined through the
// administrator-maintained module_associations table.
type ModuleOption struct {
	ModuleID int        `db:"module_id" json:"module_id"`
	Name     string     `db:"name" json:"name"`
	Role     ModuleRole `db:"module_role" json:"module_role"`
}

// ModuleAssociation pairs a major module with one of its allowed minors.
type ModuleAssociation struct {
	ID            int `db:"id" json:"id"`
	MajorModuleID int `db:"major_module_id" json:"major_module_id"`
	MinorModuleID int `db:"minor_module_id" json:"minor_module_id"`
}

type ModuleColor struct {
	ID       int    `db:"id" json:"id"`
	ModuleID int    `db:"module_id" json:"module_id"`
	Color    string `db:"color" json:"color"`
}

// Package schema declares the fixed column layout of the grant application
// table and the role each column plays in feature engineering.
package schema

// Column names of the shared application block.
const (
	ApplicationID        = "Grant.Application.ID"
	GrantStatus          = "Grant.Status"
	SponsorCode          = "Sponsor.Code"
	GrantCategory        = "Grant.Category.Code"
	ContractValueBand    = "Contract.Value.Band...see.note.A"
	StartDate            = "Start.date"
	RFCDCodePrefix       = "RFCD.Code."
	RFCDPercentagePrefix = "RFCD.Percentage."
	SEOCodePrefix        = "SEO.Code."
	SEOPercentagePrefix  = "SEO.Percentage."
)

// Column names of the first researcher block. Block k (1-based) replaces the
// trailing "1" with k.
const (
	PersonID           = "Person.ID.1"
	ResearcherRole     = "Role.1"
	YearOfBirth        = "Year.of.Birth.1"
	CountryOfBirth     = "Country.of.Birth.1"
	HomeLanguage       = "Home.Language.1"
	DeptNo             = "Dept.No..1"
	FacultyNo          = "Faculty.No..1"
	WithPHD            = "With.PHD.1"
	YearsInUni         = "No..of.Years.in.Uni.at.Time.of.Grant.1"
	SuccessfulGrants   = "Number.of.Successful.Grant.1"
	UnsuccessfulGrants = "Number.of.Unsuccessful.Grant.1"
	PapersAStar        = "A..1"
	PapersA            = "A.1"
	PapersB            = "B.1"
	PapersC            = "C.1"
)

// CodeSlots is the number of (code, percentage) pairs per code family.
const CodeSlots = 5

// Scope tells whether a field belongs to the application or to a researcher.
type Scope int

const (
	Shared Scope = iota
	Researcher
)

func (s Scope) String() string {
	if s == Researcher {
		return "researcher"
	}
	return "shared"
}

// Role is what feature engineering does with a field.
type Role int

const (
	// Key joins every intermediate aggregate.
	Key Role = iota
	// Label is the classification target; carried through untouched.
	Label
	// Keep survives into the application-level table (possibly re-encoded).
	Keep
	// Derived is consumed by an aggregate and then removed.
	Derived
	// Drop carries no feature value.
	Drop
)

func (r Role) String() string {
	switch r {
	case Key:
		return "key"
	case Label:
		return "label"
	case Keep:
		return "keep"
	case Derived:
		return "derived"
	default:
		return "drop"
	}
}

// Field is one column declaration.
type Field struct {
	Name  string
	Scope Scope
	Role  Role
}

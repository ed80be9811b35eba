package domain

// SourceType identifies a disclosure source adapter.
type SourceType string

const (
	SourceUSHouse      SourceType = "us_house"
	SourceUSSenate     SourceType = "us_senate"
	SourceUKParliament SourceType = "uk_parliament"
	SourceEUParliament SourceType = "eu_parliament"
	SourceCalifornia   SourceType = "california"
	SourceNewYork      SourceType = "new_york"
	SourceTexas        SourceType = "texas"
	SourceQuiverQuant  SourceType = "quiverquant"
)

// String returns the string representation of SourceType.
func (s SourceType) String() string {
	return string(s)
}

// IsValid checks if the source type is a valid value.
func (s SourceType) IsValid() bool {
	switch s {
	case SourceUSHouse, SourceUSSenate, SourceUKParliament, SourceEUParliament,
		SourceCalifornia, SourceNewYork, SourceTexas, SourceQuiverQuant:
		return true
	}
	return false
}

// InferredRole returns the politician role implied by the source when the
// matcher finds no existing record.
func (s SourceType) InferredRole() string {
	switch s {
	case SourceUSHouse:
		return RoleRepresentative
	case SourceUSSenate:
		return RoleSenator
	case SourceEUParliament:
		return RoleMEP
	case SourceUKParliament:
		return RoleMP
	case SourceCalifornia, SourceNewYork, SourceTexas:
		return RoleStateLegislator
	}
	return ""
}

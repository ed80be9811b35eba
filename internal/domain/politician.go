package domain

import (
	"strings"
	"time"
)

// Politician represents an elected official who files financial disclosures.
// Corresponds to politicians table in PostgreSQL.
type Politician struct {
	ID             int64  // BIGSERIAL primary key
	FirstName      string
	LastName       string
	Role           string // canonical role, see Role* constants
	Party          string // optional
	Chamber        string // "house" | "senate" | "" when not applicable
	StateOrCountry string // two-letter state code or country name; empty means unknown
	District       string // e.g. "CA11", optional
	BioguideID     string // external id; unique when non-empty
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Canonical politician roles.
const (
	RoleRepresentative  = "Representative"
	RoleSenator         = "Senator"
	RoleMEP             = "MEP"
	RoleMP              = "MP"
	RoleStateLegislator = "State Legislator"
)

// Chamber values used for storage paths and identity matching.
const (
	ChamberHouse  = "house"
	ChamberSenate = "senate"
)

// HasBioguideID reports whether the politician carries an external identity.
// Empty string is treated as missing.
func (p *Politician) HasBioguideID() bool {
	return p.BioguideID != ""
}

// RoleFromChamber maps a source-reported chamber label onto a canonical
// role. Feeds spell the chamber inconsistently ("House", "house",
// "Representatives", "Senate"), so matching is by substring.
func RoleFromChamber(chamber string) string {
	c := strings.ToLower(strings.TrimSpace(chamber))
	switch {
	case strings.Contains(c, "senat"):
		return RoleSenator
	case strings.Contains(c, "house"), strings.Contains(c, "represent"):
		return RoleRepresentative
	}
	return ""
}

// Package domain defines the core types shared across the impact dashboard:
// the normalized publication row, its authors, and the error taxonomy.
package domain

import (
	"strings"
	"time"
)

// Unknown is the explicit marker used for missing optional fields
// (organizations, countries, journal). Rows are never dropped for missing
// optional data, so group-by counts stay well-defined.
const Unknown = "Unknown"

// Author represents one author of a publication.
type Author struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	ORCID     string `json:"orcid,omitempty"`
}

// String returns "First Last", falling back to whichever part is present.
func (a Author) String() string {
	first := strings.TrimSpace(a.FirstName)
	last := strings.TrimSpace(a.LastName)
	switch {
	case first != "" && last != "":
		return first + " " + last
	case last != "":
		return last
	default:
		return first
	}
}

// PublicationRow is the normalized, one-row-per-publication projection of a
// raw Dimensions record. Every row has a non-empty Title and a non-negative
// CitationCount; missing organizations and countries carry the Unknown
// marker rather than being omitted.
type PublicationRow struct {
	ID              string
	Title           string
	Type            string
	Journal         string
	Authors         []Author
	Year            int
	CitationCount   int
	Organizations   []string
	Countries       []string
	PublicationDate *time.Time
}

// FirstAuthor returns the formatted name of the first author, or an empty
// string when the author list is empty.
func (r *PublicationRow) FirstAuthor() string {
	if len(r.Authors) == 0 {
		return ""
	}
	return r.Authors[0].String()
}

// HasKnownValue reports whether any entry in values is not the Unknown marker.
func HasKnownValue(values []string) bool {
	for _, v := range values {
		if v != Unknown {
			return true
		}
	}
	return false
}

// Package analytics turns raw Dimensions publication records into normalized
// rows and computes the derived views consumed by the dashboard widgets.
// Every operation is a pure function over its inputs.
package analytics

import (
	"strings"
	"time"

	"github.com/aurin/impact-dashboard/internal/dimensions"
	"github.com/aurin/impact-dashboard/internal/domain"
)

// Report summarizes a normalization pass.
type Report struct {
	// Input is the number of raw records received.
	Input int
	// Normalized is the number of rows produced.
	Normalized int
	// Skipped is the number of records dropped for a missing title.
	Skipped int
	// SkipErrors describes each skipped record.
	SkipErrors []error
}

// Normalize converts raw Dimensions records into publication rows.
//
// Records without a title are skipped and counted; all other missing fields
// default to the explicit domain.Unknown marker so downstream group-by
// operations never silently drop rows. Output preserves input order.
func Normalize(records []dimensions.Publication) ([]domain.PublicationRow, Report) {
	report := Report{Input: len(records)}
	rows := make([]domain.PublicationRow, 0, len(records))

	for i := range records {
		row, err := normalizeRecord(&records[i])
		if err != nil {
			report.Skipped++
			report.SkipErrors = append(report.SkipErrors, err)
			continue
		}
		rows = append(rows, row)
	}

	report.Normalized = len(rows)
	return rows, report
}

// normalizeRecord maps one raw record to a row. Records lacking the
// required title are rejected with a DataShapeError.
func normalizeRecord(rec *dimensions.Publication) (domain.PublicationRow, error) {
	title := strings.TrimSpace(rec.Title)
	if title == "" {
		return domain.PublicationRow{}, domain.NewDataShapeError("title", "record "+strings.TrimSpace(rec.ID)+" has no title")
	}

	row := domain.PublicationRow{
		ID:              strings.TrimSpace(rec.ID),
		Title:           title,
		Type:            strings.TrimSpace(rec.Type),
		Journal:         domain.Unknown,
		Year:            rec.Year,
		CitationCount:   rec.TimesCited,
		Authors:         normalizeAuthors(rec.Authors),
		Organizations:   normalizeNames(orgNames(rec.Orgs)),
		Countries:       normalizeNames(countryNames(rec.Countries)),
		PublicationDate: ParseDate(rec.Date),
	}

	if rec.Journal != nil {
		if journal := strings.TrimSpace(rec.Journal.Title); journal != "" {
			row.Journal = journal
		}
	}

	// Citation counts are non-negative by invariant.
	if row.CitationCount < 0 {
		row.CitationCount = 0
	}

	return row, nil
}

func normalizeAuthors(authors []dimensions.Author) []domain.Author {
	out := make([]domain.Author, 0, len(authors))
	for _, a := range authors {
		author := domain.Author{
			FirstName: strings.TrimSpace(a.FirstName),
			LastName:  strings.TrimSpace(a.LastName),
			ORCID:     strings.TrimSpace(a.ORCID),
		}
		if author.FirstName == "" && author.LastName == "" {
			continue
		}
		out = append(out, author)
	}
	return out
}

func orgNames(orgs []dimensions.Org) []string {
	names := make([]string, 0, len(orgs))
	for _, o := range orgs {
		names = append(names, o.Name)
	}
	return names
}

func countryNames(countries []dimensions.Country) []string {
	names := make([]string, 0, len(countries))
	for _, c := range countries {
		names = append(names, c.Name)
	}
	return names
}

// normalizeNames trims and drops blank entries, substituting the Unknown
// marker when nothing usable remains.
func normalizeNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{domain.Unknown}
	}
	return out
}

// dateLayouts lists the publication date formats Dimensions returns,
// most specific first.
var dateLayouts = []string{"2006-01-02", "2006-01", "2006"}

// ParseDate parses a Dimensions publication date. Returns nil for an empty
// or unparseable value.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

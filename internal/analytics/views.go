package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/aurin/impact-dashboard/internal/domain"
)

// GroupField selects the multi-valued column a GroupCount aggregates over.
type GroupField string

const (
	// FieldOrganization groups by affiliated research organization.
	FieldOrganization GroupField = "organization"
	// FieldCountry groups by research organization country.
	FieldCountry GroupField = "country"
)

// TopCited returns the n most cited rows in descending citation order.
// Ties are broken by the more recent publication date; undated rows sort
// last within a tie. The input slice is never modified.
func TopCited(rows []domain.PublicationRow, n int) []domain.PublicationRow {
	if n <= 0 || len(rows) == 0 {
		return []domain.PublicationRow{}
	}

	sorted := make([]domain.PublicationRow, len(rows))
	copy(sorted, rows)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].CitationCount != sorted[j].CitationCount {
			return sorted[i].CitationCount > sorted[j].CitationCount
		}
		return laterDate(sorted[i].PublicationDate, sorted[j].PublicationDate)
	})

	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// laterDate reports whether a sorts before b under most-recent-first
// ordering with nil dates last.
func laterDate(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return a.After(*b)
	}
}

// GroupCount tallies rows per distinct value of the given field. A row
// affiliated with several organizations or countries contributes one count
// to each distinct value; the Unknown marker is excluded from the tally.
func GroupCount(rows []domain.PublicationRow, field GroupField) map[string]int {
	counts := make(map[string]int)
	for i := range rows {
		var values []string
		switch field {
		case FieldOrganization:
			values = rows[i].Organizations
		case FieldCountry:
			values = rows[i].Countries
		default:
			return counts
		}

		seen := make(map[string]struct{}, len(values))
		for _, v := range values {
			if v == domain.Unknown {
				continue
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			counts[v]++
		}
	}
	return counts
}

// RecentWindow returns the rows published within the trailing calendar
// window of months before now, boundary date inclusive. Rows without a
// publication date are excluded. Input order is preserved.
func RecentWindow(rows []domain.PublicationRow, months int, now time.Time) []domain.PublicationRow {
	out := []domain.PublicationRow{}
	if months <= 0 {
		return out
	}

	// Parsed publication dates sit at midnight, so the cutoff must be
	// truncated to the start of its day or the boundary date is lost
	// whenever now carries a clock time.
	shifted := now.AddDate(0, -months, 0)
	cutoff := time.Date(shifted.Year(), shifted.Month(), shifted.Day(), 0, 0, 0, 0, shifted.Location())
	for i := range rows {
		date := rows[i].PublicationDate
		if date == nil || date.Before(cutoff) {
			continue
		}
		out = append(out, rows[i])
	}
	return out
}

// PeriodCount is one point on a publication trend line.
type PeriodCount struct {
	// Period is the label, "2024-03" for months and "2024" for years.
	Period string `json:"period"`
	// Start is the first instant of the period, in UTC.
	Start time.Time `json:"start"`
	// Count is the number of publications dated within the period.
	Count int `json:"count"`
}

// TrendByPeriod buckets rows by publication period and returns one count
// per period in chronological order. Periods between the earliest and
// latest dated row with no publications appear with a zero count. Rows
// without a publication date are excluded.
func TrendByPeriod(rows []domain.PublicationRow, granularity string) []PeriodCount {
	counts := make(map[time.Time]int)
	var min, max time.Time

	for i := range rows {
		date := rows[i].PublicationDate
		if date == nil {
			continue
		}
		start := periodStart(*date, granularity)
		counts[start]++
		if min.IsZero() || start.Before(min) {
			min = start
		}
		if start.After(max) {
			max = start
		}
	}

	out := []PeriodCount{}
	if len(counts) == 0 {
		return out
	}

	for start := min; !start.After(max); start = nextPeriod(start, granularity) {
		out = append(out, PeriodCount{
			Period: periodLabel(start, granularity),
			Start:  start,
			Count:  counts[start],
		})
	}
	return out
}

func periodStart(t time.Time, granularity string) time.Time {
	if granularity == "year" {
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func nextPeriod(start time.Time, granularity string) time.Time {
	if granularity == "year" {
		return start.AddDate(1, 0, 0)
	}
	return start.AddDate(0, 1, 0)
}

func periodLabel(start time.Time, granularity string) string {
	if granularity == "year" {
		return start.Format("2006")
	}
	return start.Format("2006-01")
}

// HistogramBin is one bucket of a citation count distribution.
type HistogramBin struct {
	// Low is the inclusive lower bound of the bin.
	Low int `json:"low"`
	// High is the inclusive upper bound, meaningless when OpenEnded.
	High int `json:"high"`
	// Label renders the bin range, "10-19" or "190+" for the top bin.
	Label string `json:"label"`
	// Count is the number of rows whose citation count falls in the bin.
	Count int `json:"count"`
	// OpenEnded marks the top bin, which absorbs every count >= Low.
	OpenEnded bool `json:"open_ended"`
}

// CitationHistogram distributes rows across bins equal-width buckets of
// citation count starting at zero. The top bin is open-ended so outlier
// counts never fall outside the distribution. Bin width is at least one.
func CitationHistogram(rows []domain.PublicationRow, bins int) []HistogramBin {
	if bins <= 0 || len(rows) == 0 {
		return []HistogramBin{}
	}

	maxCitations := 0
	for i := range rows {
		if rows[i].CitationCount > maxCitations {
			maxCitations = rows[i].CitationCount
		}
	}

	width := (maxCitations + bins) / bins
	if width < 1 {
		width = 1
	}

	out := make([]HistogramBin, bins)
	for i := range out {
		low := i * width
		out[i] = HistogramBin{
			Low:   low,
			High:  low + width - 1,
			Label: fmt.Sprintf("%d-%d", low, low+width-1),
		}
	}
	top := &out[bins-1]
	top.OpenEnded = true
	top.Label = fmt.Sprintf("%d+", top.Low)

	for i := range rows {
		idx := rows[i].CitationCount / width
		if idx >= bins {
			idx = bins - 1
		}
		out[idx].Count++
	}
	return out
}

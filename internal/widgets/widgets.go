// Package widgets builds the renderable elements of the impact dashboard
// from normalized publication rows. Each builder is a pure function; the
// Builder only carries display configuration.
package widgets

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/biter777/countries"

	"github.com/aurin/impact-dashboard/internal/analytics"
	"github.com/aurin/impact-dashboard/internal/domain"
)

// Kind identifies how a dashboard element is rendered.
type Kind string

const (
	KindMetricTiles Kind = "metric_tiles"
	KindTable       Kind = "table"
	KindBarChart    Kind = "bar_chart"
	KindChoropleth  Kind = "choropleth"
	KindLineChart   Kind = "line_chart"
	KindHistogram   Kind = "histogram"
)

// Element is one renderable unit of the dashboard. Exactly one payload
// field is populated, selected by Kind.
type Element struct {
	Kind  Kind   `json:"kind"`
	Title string `json:"title"`

	Tiles   []MetricTile             `json:"tiles,omitempty"`
	Table   *Table                   `json:"table,omitempty"`
	Bars    []BarEntry               `json:"bars,omitempty"`
	Stats   *SummaryStats            `json:"stats,omitempty"`
	Regions []Region                 `json:"regions,omitempty"`
	Points  []analytics.PeriodCount  `json:"points,omitempty"`
	Bins    []analytics.HistogramBin `json:"bins,omitempty"`
}

// MetricTile is a single headline number.
type MetricTile struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// Table is a column-ordered grid of display strings.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// BarEntry is one bar of a categorical chart, largest first.
type BarEntry struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// SummaryStats describes the distribution behind a bar chart.
type SummaryStats struct {
	Groups int     `json:"groups"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Max    int     `json:"max"`
}

// Region is one country of a choropleth, keyed by ISO 3166-1 alpha-3 code.
type Region struct {
	Country string `json:"country"`
	ISO3    string `json:"iso3"`
	Count   int    `json:"count"`
}

// Config carries the display parameters of the widget set.
type Config struct {
	// TopCitedCount is the number of rows in the most-cited table.
	TopCitedCount int
	// RecentPapersCount is the number of rows in the latest-papers table.
	RecentPapersCount int
	// RecentWindowMonths is the span of the trailing-window table.
	RecentWindowMonths int
	// TrendGranularity is "month" or "year".
	TrendGranularity string
	// HistogramBins is the number of citation distribution buckets.
	HistogramBins int
}

// Builder assembles the dashboard element list in its fixed display order.
type Builder struct {
	config Config
}

// NewBuilder returns a Builder for the given display configuration.
func NewBuilder(config Config) *Builder {
	return &Builder{config: config}
}

// Build produces every dashboard element in display order. Empty row sets
// yield empty but well-formed elements, never an error.
func (b *Builder) Build(rows []domain.PublicationRow, now time.Time) []Element {
	return b.BuildWithObserver(rows, now, nil)
}

// BuildWithObserver is Build with a per-widget timing callback. A nil
// observe is ignored.
func (b *Builder) BuildWithObserver(rows []domain.PublicationRow, now time.Time, observe func(widget string, seconds float64)) []Element {
	steps := []struct {
		name string
		fn   func() Element
	}{
		{"key_metrics", func() Element { return b.keyMetrics(rows) }},
		{"top_cited", func() Element { return b.topCitedTable(rows) }},
		{"organizations", func() Element { return b.organizationsChart(rows) }},
		{"countries", func() Element { return b.countriesMap(rows) }},
		{"recent_papers", func() Element { return b.recentPapersTable(rows) }},
		{"recent_window", func() Element { return b.recentWindowTable(rows, now) }},
		{"trend", func() Element { return b.trendLine(rows) }},
		{"citation_histogram", func() Element { return b.citationHistogram(rows) }},
	}

	elements := make([]Element, 0, len(steps))
	for _, step := range steps {
		start := time.Now()
		element := step.fn()
		if observe != nil {
			observe(step.name, time.Since(start).Seconds())
		}
		elements = append(elements, element)
	}
	return elements
}

func (b *Builder) keyMetrics(rows []domain.PublicationRow) Element {
	totalCitations := 0
	for i := range rows {
		totalCitations += rows[i].CitationCount
	}

	return Element{
		Kind:  KindMetricTiles,
		Title: "Key Metrics",
		Tiles: []MetricTile{
			{Label: "Publications", Value: len(rows)},
			{Label: "Citations", Value: totalCitations},
			{Label: "Organizations", Value: len(analytics.GroupCount(rows, analytics.FieldOrganization))},
			{Label: "Countries", Value: len(analytics.GroupCount(rows, analytics.FieldCountry))},
		},
	}
}

func (b *Builder) topCitedTable(rows []domain.PublicationRow) Element {
	top := analytics.TopCited(rows, b.config.TopCitedCount)

	table := &Table{
		Columns: []string{"Title", "First Author", "Journal", "Year", "Citations"},
		Rows:    make([][]string, 0, len(top)),
	}
	for i := range top {
		table.Rows = append(table.Rows, []string{
			top[i].Title,
			firstAuthorName(&top[i]),
			top[i].Journal,
			yearLabel(top[i].Year),
			strconv.Itoa(top[i].CitationCount),
		})
	}

	return Element{Kind: KindTable, Title: "Most Cited Publications", Table: table}
}

func (b *Builder) organizationsChart(rows []domain.PublicationRow) Element {
	counts := analytics.GroupCount(rows, analytics.FieldOrganization)
	bars := sortedBars(counts)

	element := Element{
		Kind:  KindBarChart,
		Title: "Publications by Organization",
		Bars:  bars,
	}
	if len(bars) > 0 {
		element.Stats = summarize(bars)
	}
	return element
}

func (b *Builder) countriesMap(rows []domain.PublicationRow) Element {
	counts := analytics.GroupCount(rows, analytics.FieldCountry)

	regions := make([]Region, 0, len(counts))
	for name, count := range counts {
		code := countries.ByName(name)
		if code == countries.Unknown {
			continue
		}
		regions = append(regions, Region{
			Country: name,
			ISO3:    code.Alpha3(),
			Count:   count,
		})
	}
	sort.Slice(regions, func(i, j int) bool {
		if regions[i].Count != regions[j].Count {
			return regions[i].Count > regions[j].Count
		}
		return regions[i].Country < regions[j].Country
	})

	return Element{Kind: KindChoropleth, Title: "Publications by Country", Regions: regions}
}

func (b *Builder) recentPapersTable(rows []domain.PublicationRow) Element {
	table := b.datedTable(rows, b.config.RecentPapersCount)
	return Element{Kind: KindTable, Title: "Latest Publications", Table: table}
}

func (b *Builder) recentWindowTable(rows []domain.PublicationRow, now time.Time) Element {
	recent := analytics.RecentWindow(rows, b.config.RecentWindowMonths, now)
	table := b.datedTable(recent, len(recent))
	return Element{
		Kind:  KindTable,
		Title: fmt.Sprintf("Published in the Last %d Months", b.config.RecentWindowMonths),
		Table: table,
	}
}

// datedTable sorts rows newest first, drops undated rows, and renders at
// most limit of them.
func (b *Builder) datedTable(rows []domain.PublicationRow, limit int) *Table {
	dated := make([]domain.PublicationRow, 0, len(rows))
	for i := range rows {
		if rows[i].PublicationDate != nil {
			dated = append(dated, rows[i])
		}
	}
	sort.SliceStable(dated, func(i, j int) bool {
		return dated[i].PublicationDate.After(*dated[j].PublicationDate)
	})
	if limit >= 0 && limit < len(dated) {
		dated = dated[:limit]
	}

	table := &Table{
		Columns: []string{"Title", "First Author", "Journal", "Date", "Citations"},
		Rows:    make([][]string, 0, len(dated)),
	}
	for i := range dated {
		table.Rows = append(table.Rows, []string{
			dated[i].Title,
			firstAuthorName(&dated[i]),
			dated[i].Journal,
			dated[i].PublicationDate.Format("2006-01-02"),
			strconv.Itoa(dated[i].CitationCount),
		})
	}
	return table
}

func (b *Builder) trendLine(rows []domain.PublicationRow) Element {
	return Element{
		Kind:   KindLineChart,
		Title:  "Publication Trend",
		Points: analytics.TrendByPeriod(rows, b.config.TrendGranularity),
	}
}

func (b *Builder) citationHistogram(rows []domain.PublicationRow) Element {
	return Element{
		Kind:  KindHistogram,
		Title: "Citation Distribution",
		Bins:  analytics.CitationHistogram(rows, b.config.HistogramBins),
	}
}

func sortedBars(counts map[string]int) []BarEntry {
	bars := make([]BarEntry, 0, len(counts))
	for label, count := range counts {
		bars = append(bars, BarEntry{Label: label, Count: count})
	}
	sort.Slice(bars, func(i, j int) bool {
		if bars[i].Count != bars[j].Count {
			return bars[i].Count > bars[j].Count
		}
		return bars[i].Label < bars[j].Label
	})
	return bars
}

// summarize computes distribution statistics over descending-sorted bars.
func summarize(bars []BarEntry) *SummaryStats {
	total := 0
	for _, bar := range bars {
		total += bar.Count
	}

	n := len(bars)
	var median float64
	if n%2 == 1 {
		median = float64(bars[n/2].Count)
	} else {
		median = float64(bars[n/2-1].Count+bars[n/2].Count) / 2
	}

	return &SummaryStats{
		Groups: n,
		Mean:   float64(total) / float64(n),
		Median: median,
		Max:    bars[0].Count,
	}
}

func firstAuthorName(row *domain.PublicationRow) string {
	if name := row.FirstAuthor(); name != "" {
		return name
	}
	return domain.Unknown
}

func yearLabel(year int) string {
	if year <= 0 {
		return domain.Unknown
	}
	return strconv.Itoa(year)
}

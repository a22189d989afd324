package dimensions

// authRequest is the JSON body for the Dimensions login endpoint.
type authRequest struct {
	Key string `json:"key"`
}

// authResponse is the JSON response from the Dimensions login endpoint.
type authResponse struct {
	Token string `json:"token"`
}

// QueryResponse is the top-level Dimensions DSL response for a
// publications search.
type QueryResponse struct {
	Publications []Publication `json:"publications"`
	Stats        Stats         `json:"_stats"`
}

// Stats carries result metadata from the DSL endpoint.
type Stats struct {
	TotalCount int `json:"total_count"`
}

// Publication represents one raw publication record as returned by the
// Dimensions DSL endpoint. Treated as read-only input.
type Publication struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Type       string    `json:"type"`
	Year       int       `json:"year"`
	Date       string    `json:"date"` // "2024-01-15", sometimes "2024-01" or "2024"
	TimesCited int       `json:"times_cited"`
	Journal    *Journal  `json:"journal"`
	Authors    []Author  `json:"authors"`
	Orgs       []Org     `json:"research_orgs"`
	Countries  []Country `json:"research_org_countries"`
}

// Journal identifies the publishing venue.
type Journal struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Author represents one author entry in a Dimensions record.
type Author struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	ORCID     string `json:"orcid"`
}

// Org represents one affiliated research organization (GRID entry).
type Org struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CountryName string `json:"country_name"`
}

// Country represents one affiliated country entry.
type Country struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

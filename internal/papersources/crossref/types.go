package crossref

// SearchResponse represents the envelope returned by the Crossref works API.
type SearchResponse struct {
	Status      string  `json:"status"`
	MessageType string  `json:"message-type"`
	Message     Message `json:"message"`
}

// Message holds the search results inside the Crossref envelope.
type Message struct {
	TotalResults int    `json:"total-results"`
	Items        []Item `json:"items"`
}

// WorkResponse represents the envelope for a single-work lookup.
type WorkResponse struct {
	Status      string `json:"status"`
	MessageType string `json:"message-type"`
	Message     Item   `json:"message"`
}

// Item represents a single work record in the Crossref API.
type Item struct {
	DOI             string      `json:"DOI"`
	Title           []string    `json:"title"`
	ContainerTitle  []string    `json:"container-title"`
	Publisher       string      `json:"publisher"`
	Abstract        string      `json:"abstract"`
	Authors         []Author    `json:"author"`
	Published       *DateParts  `json:"published"`
	PublishedPrint  *DateParts  `json:"published-print"`
	PublishedOnline *DateParts  `json:"published-online"`
	Issued          *DateParts  `json:"issued"`
	CitedByCount    int         `json:"is-referenced-by-count"`
	ReferencesCount int         `json:"references-count"`
	Subject         []string    `json:"subject"`
	URL             string      `json:"URL"`
	Links           []Link      `json:"link"`
	Type            string      `json:"type"`
	License         []License   `json:"license"`
}

// Author represents a work author in the Crossref API.
type Author struct {
	Given       string        `json:"given"`
	Family      string        `json:"family"`
	Name        string        `json:"name"`
	ORCID       string        `json:"ORCID"`
	Affiliation []Affiliation `json:"affiliation"`
}

// Affiliation represents an author affiliation.
type Affiliation struct {
	Name string `json:"name"`
}

// DateParts represents Crossref's nested date format,
// e.g. {"date-parts": [[2023, 1, 15]]}.
type DateParts struct {
	DateParts [][]int `json:"date-parts"`
}

// Link represents a full-text link on a work.
type Link struct {
	URL         string `json:"URL"`
	ContentType string `json:"content-type"`
}

// License represents a license entry on a work.
type License struct {
	URL string `json:"URL"`
}

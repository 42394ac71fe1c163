package arxiv

import "encoding/xml"

// The arXiv API speaks Atom with OpenSearch extensions. Only the
// elements the converter reads are modeled here.

type atomFeed struct {
	XMLName      xml.Name    `xml:"feed"`
	TotalResults int         `xml:"totalResults"`
	Entries      []atomEntry `xml:"entry"`
}

type atomEntry struct {
	// ID is the abstract page URL, e.g. "http://arxiv.org/abs/2301.12345v1".
	ID         string         `xml:"id"`
	Title      string         `xml:"title"`
	Summary    string         `xml:"summary"`
	Published  string         `xml:"published"`
	DOI        string         `xml:"doi"`
	JournalRef string         `xml:"journal_ref"`
	Authors    []atomAuthor   `xml:"author"`
	Categories []atomCategory `xml:"category"`
	Links      []atomLink     `xml:"link"`
}

type atomAuthor struct {
	Name        string `xml:"name"`
	Affiliation string `xml:"affiliation"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

type atomLink struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Type  string `xml:"type,attr"`
	Title string `xml:"title,attr"`
}

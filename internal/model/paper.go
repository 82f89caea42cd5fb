package model

// Paper is a raw bibliographic entry returned by a literature source before
// feature extraction.
type Paper struct {
	Source      string            `json:"source"`
	PaperID     string            `json:"paper_id,omitempty"`
	PMID        string            `json:"pmid,omitempty"`
	Title       string            `json:"title"`
	Abstract    string            `json:"abstract"`
	Year        Year              `json:"year"`
	Venue       string            `json:"venue,omitempty"`
	Authors     []string          `json:"authors"`
	URL         string            `json:"url,omitempty"`
	ExternalIDs map[string]string `json:"external_ids,omitempty"`
	Text        string            `json:"text,omitempty"`
}

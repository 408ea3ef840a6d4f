package models

// Source labels for context blocks
const (
	SourceLocal       = "local"
	SourceCDSCO       = "CDSCO"
	SourceIPA         = "IPA"
	SourceMedications = "medications"
)

// ContextBlock is a labeled chunk of text assembled for an AI prompt.
// Blocks are created once and never mutated; Order is their position in the assembly.
type ContextBlock struct {
	SourceLabel string `json:"source_label"`
	Text        string `json:"text"`
	Order       int    `json:"order"`
}

// SearchResult is a ranked URL returned by a web search
type SearchResult struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Snippet string `json:"snippet,omitempty"`
	Rank    int    `json:"rank"`
}

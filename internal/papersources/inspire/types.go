package inspire

// SearchResponse is the root of a literature search response.
type SearchResponse struct {
	Hits HitList `json:"hits"`
}

// HitList holds the records of one result page in upstream order.
type HitList struct {
	Hits  []Hit `json:"hits"`
	Total int   `json:"total"`
}

// Hit is one literature record.
type Hit struct {
	ID       *string  `json:"id,omitempty"`
	Created  *string  `json:"created,omitempty"`
	Updated  *string  `json:"updated,omitempty"`
	Metadata Metadata `json:"metadata"`
	Links    Links    `json:"links"`
}

// Metadata carries the record attributes. The upstream shape varies between record
// versions, so every field is optional.
type Metadata struct {
	// Title is the legacy flat title list.
	Title []string `json:"title,omitempty"`

	// Titles is the structured title list used by current records.
	Titles []Title `json:"titles,omitempty"`

	Authors       []Author   `json:"authors,omitempty"`
	Abstracts     []Abstract `json:"abstracts,omitempty"`
	CitationCount *uint32    `json:"citation_count,omitempty"`

	// ControlNumber is the stable per-record identifier.
	ControlNumber *uint32 `json:"control_number,omitempty"`
}

// Title is a structured title entry.
type Title struct {
	Title  *string `json:"title,omitempty"`
	Source *string `json:"source,omitempty"`
}

// Author is a record author.
type Author struct {
	FullName *string `json:"full_name,omitempty"`
}

// Abstract is an abstract entry.
type Abstract struct {
	Source *string `json:"source,omitempty"`
	Value  *string `json:"value,omitempty"`
}

// Links lists alternate representations of the record.
type Links struct {
	JSON    *string `json:"json,omitempty"`
	LatexEU *string `json:"latex_eu,omitempty"`
	LatexUS *string `json:"latex_us,omitempty"`
	Bibtex  *string `json:"bibtex,omitempty"`
}

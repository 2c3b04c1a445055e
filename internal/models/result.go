package models

// Hit is a raw nearest-neighbor match: the stored entry at Position and its squared L2 distance.
type Hit struct {
	Position int                    `json:"position"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata"`
	Distance float64                `json:"distance"`
}

// SearchResult is a reranked hit.
// BaseScore is the negated distance; BoostedScore adds the weighted heading score.
type SearchResult struct {
	Position     int                    `json:"position"`
	Text         string                 `json:"text"`
	Metadata     map[string]interface{} `json:"metadata"`
	Distance     float64                `json:"distance"`
	BaseScore    float64                `json:"base_score"`
	HeadingScore float64                `json:"heading_score"`
	BoostedScore float64                `json:"boosted_score"`
	Rank         int                    `json:"rank"`
}

// RetrieveResponse is the response for a retrieval call.
type RetrieveResponse struct {
	Query         string          `json:"query"`
	ExpandedQuery string          `json:"expanded_query"`
	Results       []*SearchResult `json:"results"`
	QueryTime     int64           `json:"query_time_ms"`
}

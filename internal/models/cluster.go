package models

// SearchIntent classifies why a searcher uses a keyword.
type SearchIntent string

const (
	IntentInformational SearchIntent = "informational"
	IntentCommercial    SearchIntent = "commercial"
	IntentTransactional SearchIntent = "transactional"
	IntentNavigational  SearchIntent = "navigational"
)

// ClusterRequest asks for a pillar/supporting keyword cluster around a seed topic.
type ClusterRequest struct {
	Topic     string `json:"topic" validate:"required,max=200"`
	WebsiteID string `json:"website_id,omitempty"`
	Count     int    `json:"count,omitempty" validate:"omitempty,min=3,max=15"`
	Model     string `json:"model,omitempty"`
}

// ClusterKeyword is one keyword of a suggested cluster.
type ClusterKeyword struct {
	Keyword       string        `json:"keyword"`
	Intent        SearchIntent  `json:"intent"`
	ContentLength ContentLength `json:"content_length"`
	Rationale     string        `json:"rationale,omitempty"`
}

// ClusterSuggestion is a pillar keyword plus its supporting keywords.
type ClusterSuggestion struct {
	Pillar     ClusterKeyword   `json:"pillar"`
	Supporting []ClusterKeyword `json:"supporting"`
}

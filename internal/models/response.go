package models

type SearchMetadata struct {
	TotalResults   int    `json:"total_results"`
	PrimaryStatus  string `json:"primary_status"`
	FallbackStatus string `json:"fallback_status"`
	SearchTimeMs   int64  `json:"search_time_ms"`
	CacheHit       bool   `json:"cache_hit"`
	// CooldownSeconds is set while the primary provider is cooling down.
	CooldownSeconds int `json:"cooldown_seconds,omitempty"`
}

type SearchResponse struct {
	SearchCriteria SearchRequest  `json:"search_criteria"`
	Metadata       SearchMetadata `json:"metadata"`
	Offers         []Offer        `json:"offers"`
}

type CalendarResponse struct {
	Origin      string         `json:"origin"`
	Destination string         `json:"destination"`
	Year        int            `json:"year"`
	Month       int            `json:"month"`
	Prices      map[string]int `json:"prices"`
	Cached      bool           `json:"cached"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

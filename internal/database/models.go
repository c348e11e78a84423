package database

// SearchRun records one topic search and how its list was shaped.
type SearchRun struct {
	ID             string
	Niche          string
	Recency        string
	RequestedCount int
	ResultCount    int
	TopicCount     int
	Path           string  // "llm" or "fallback"
	FallbackReason *string
	Location       *string
	CreatedAt      *string
}

// Post is a generated post body.
type Post struct {
	ID           int64
	Topic        string
	Persona      string
	ExtraContext *string
	Body         string
	CreatedAt    *string
}

// Image is a generated image file awaiting or holding approval.
type Image struct {
	ID         int64
	Topic      string
	Path       string
	Template   *string
	Headline   *string
	Approved   bool
	ApprovedAt *string
	CreatedAt  *string
}

// Stats contains aggregate database statistics.
type Stats struct {
	SearchRuns     int
	FallbackRuns   int
	StoredTopics   int
	Posts          int
	Images         int
	ApprovedImages int
	LastRunAt      string
}

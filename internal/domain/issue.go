package domain

import "time"

// Article is a single summarized story inside an issue section.
type Article struct {
	Title   string `json:"title"`
	Source  string `json:"source"`
	URL     string `json:"url"`
	Summary string `json:"summary"`
}

// Section groups articles under a topic heading.
type Section struct {
	Title    string    `json:"title"`
	Summary  string    `json:"summary"`
	Articles []Article `json:"articles"`
}

// Issue is one week's newsletter content, produced upstream by the content
// pipeline and stored keyed by week ID (e.g. "2026-week-34"). The most
// recently generated issue is the "current" one.
type Issue struct {
	WeekID      string    `json:"week_id"`
	Subject     string    `json:"subject"`
	Sections    []Section `json:"sections"`
	GeneratedAt time.Time `json:"generated_at"`
}

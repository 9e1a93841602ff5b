package model

import "time"

// LeaderboardEntry is derived from SubmissionRecords on read and never stored
// in the database.
type LeaderboardEntry struct {
	Rank         int       `json:"rank"`
	UserID       string    `json:"user_id"`
	DisplayName  string    `json:"display_name"`
	EarnedPoints int       `json:"earned_points"`
	TotalPoints  int       `json:"total_points"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

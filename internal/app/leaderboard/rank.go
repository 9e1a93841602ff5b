package leaderboard

import (
	"sort"

	"github.com/AryanShukla12173/quiz-app-sub000/internal/domain/model"
)

// Rank keeps each user's best record (highest earned points, earliest
// creation on ties) and orders users by the same rule. User id breaks any
// remaining tie so the result is stable. names maps user id to display name;
// missing names fall back to the id.
func Rank(records []model.SubmissionRecord, names map[string]string) []model.LeaderboardEntry {
	best := make(map[string]model.SubmissionRecord, len(records))
	for _, rec := range records {
		cur, ok := best[rec.UserID]
		if !ok || better(rec, cur) {
			best[rec.UserID] = rec
		}
	}

	entries := make([]model.LeaderboardEntry, 0, len(best))
	for userID, rec := range best {
		name := names[userID]
		if name == "" {
			name = userID
		}
		entries = append(entries, model.LeaderboardEntry{
			UserID:       userID,
			DisplayName:  name,
			EarnedPoints: rec.EarnedPoints,
			TotalPoints:  rec.TotalPoints,
			SubmittedAt:  rec.CreatedAt,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.EarnedPoints != b.EarnedPoints {
			return a.EarnedPoints > b.EarnedPoints
		}
		if !a.SubmittedAt.Equal(b.SubmittedAt) {
			return a.SubmittedAt.Before(b.SubmittedAt)
		}
		return a.UserID < b.UserID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

func better(a, b model.SubmissionRecord) bool {
	if a.EarnedPoints != b.EarnedPoints {
		return a.EarnedPoints > b.EarnedPoints
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

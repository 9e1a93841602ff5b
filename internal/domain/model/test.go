package model

import "time"

// TestDefinition is immutable once published.
type TestDefinition struct {
	ID              string      `json:"id"`
	Slug            string      `json:"slug"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	DurationMinutes int         `json:"duration_minutes"`
	Challenges      []Challenge `json:"challenges"`
	CreatedByID     *string     `json:"created_by_id,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// Challenge IDs are assigned when the test is authored and never derived
// from position.
type Challenge struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Score       int        `json:"score"`
	TestCases   []TestCase `json:"test_cases"`
}

// TestCase inputs and outputs of hidden cases are withheld from candidates
// but still scored.
type TestCase struct {
	ID             string `json:"id"`
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
	Description    string `json:"description"`
	IsHidden       bool   `json:"is_hidden"`
}

type TestSummary struct {
	ID              string    `json:"id"`
	Slug            string    `json:"slug"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	DurationMinutes int       `json:"duration_minutes"`
	ChallengeCount  int       `json:"challenge_count"`
	TotalPoints     int       `json:"total_points"`
	CreatedAt       time.Time `json:"created_at"`
}

func (t *TestDefinition) Duration() time.Duration {
	return time.Duration(t.DurationMinutes) * time.Minute
}

func (t *TestDefinition) TotalPoints() int {
	total := 0
	for _, ch := range t.Challenges {
		total += ch.Score
	}
	return total
}

func (t *TestDefinition) Challenge(id string) (*Challenge, bool) {
	for i := range t.Challenges {
		if t.Challenges[i].ID == id {
			return &t.Challenges[i], true
		}
	}
	return nil, false
}

func (t *TestDefinition) Summary() TestSummary {
	return TestSummary{
		ID:              t.ID,
		Slug:            t.Slug,
		Title:           t.Title,
		Description:     t.Description,
		DurationMinutes: t.DurationMinutes,
		ChallengeCount:  len(t.Challenges),
		TotalPoints:     t.TotalPoints(),
		CreatedAt:       t.CreatedAt,
	}
}

// CandidateView returns a deep copy with hidden test case contents removed.
func (t *TestDefinition) CandidateView() TestDefinition {
	view := *t
	view.CreatedByID = nil
	view.Challenges = make([]Challenge, len(t.Challenges))
	for i, ch := range t.Challenges {
		cp := ch
		cp.TestCases = make([]TestCase, len(ch.TestCases))
		for j, tc := range ch.TestCases {
			if tc.IsHidden {
				tc.Input = ""
				tc.ExpectedOutput = ""
			}
			cp.TestCases[j] = tc
		}
		view.Challenges[i] = cp
	}
	return view
}

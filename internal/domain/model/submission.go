package model

import "time"

type VerdictStatus string

const (
	VerdictPassed         VerdictStatus = "Passed"
	VerdictWrongAnswer    VerdictStatus = "WrongAnswer"
	VerdictRuntimeError   VerdictStatus = "RuntimeError"
	VerdictExecutionError VerdictStatus = "ExecutionError" // runner unreachable or rejected the request
	VerdictThrottled      VerdictStatus = "Throttled"      // runner rate limited us; not the candidate's fault
)

type SubmissionTrigger string

const (
	TriggerManual SubmissionTrigger = "manual"
	TriggerExpiry SubmissionTrigger = "expiry"
)

// Verdict is the outcome of one test case, in the same position as the test
// case it judges.
type Verdict struct {
	TestCaseID     string        `json:"test_case_id"`
	Status         VerdictStatus `json:"status"`
	Passed         bool          `json:"passed"`
	ActualOutput   string        `json:"actual_output,omitempty"`
	ExpectedOutput string        `json:"expected_output,omitempty"`
	Stderr         string        `json:"stderr,omitempty"`
	Error          string        `json:"error,omitempty"`
	IsHidden       bool          `json:"is_hidden"`
}

// Masked hides outputs of hidden cases from the candidate.
func (v Verdict) Masked() Verdict {
	if v.IsHidden {
		v.ActualOutput = ""
		v.ExpectedOutput = ""
		v.Stderr = ""
	}
	return v
}

func MaskVerdicts(verdicts []Verdict) []Verdict {
	out := make([]Verdict, len(verdicts))
	for i, v := range verdicts {
		out[i] = v.Masked()
	}
	return out
}

// ChallengeResult freezes one challenge as it was evaluated at submission time.
type ChallengeResult struct {
	ChallengeID string     `json:"challenge_id"`
	Title       string     `json:"title"`
	Score       int        `json:"score"`
	Attempted   bool       `json:"attempted"`
	FullyPassed bool       `json:"fully_passed"`
	Language    string     `json:"language,omitempty"`
	Source      string     `json:"source,omitempty"`
	TestCases   []TestCase `json:"test_cases"`
	Verdicts    []Verdict  `json:"verdicts,omitempty"`
}

// SubmissionRecord is append-only; at most one exists per (UserID, TestID).
type SubmissionRecord struct {
	ID              string            `json:"id"`
	UserID          string            `json:"user_id"`
	TestID          string            `json:"test_id"`
	Trigger         SubmissionTrigger `json:"trigger"`
	CreatedAt       time.Time         `json:"created_at"`
	StartedAt       time.Time         `json:"started_at"`
	EndedAt         time.Time         `json:"ended_at"`
	DurationMinutes int               `json:"duration_minutes"`
	EarnedPoints    int               `json:"earned_points"`
	TotalPoints     int               `json:"total_points"`
	AttemptedCount  int               `json:"attempted_count"`
	Challenges      []ChallengeResult `json:"challenges"`
}

// CandidateView strips hidden case contents from the frozen structure.
func (r *SubmissionRecord) CandidateView() SubmissionRecord {
	view := *r
	view.Challenges = make([]ChallengeResult, len(r.Challenges))
	for i, ch := range r.Challenges {
		cp := ch
		cp.TestCases = make([]TestCase, len(ch.TestCases))
		for j, tc := range ch.TestCases {
			if tc.IsHidden {
				tc.Input = ""
				tc.ExpectedOutput = ""
			}
			cp.TestCases[j] = tc
		}
		cp.Verdicts = MaskVerdicts(ch.Verdicts)
		view.Challenges[i] = cp
	}
	return view
}

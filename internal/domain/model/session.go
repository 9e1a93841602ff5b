package model

import "time"

type SessionStatus string

const (
	SessionNotStarted SessionStatus = "NotStarted"
	SessionInProgress SessionStatus = "InProgress"
	SessionSubmitting SessionStatus = "Submitting"
	SessionSubmitted  SessionStatus = "Submitted"
)

// CodeBuffer is the candidate's latest source for one challenge.
type CodeBuffer struct {
	Language string `json:"language"`
	Source   string `json:"source"`
}

// ExecutionResult is what the code runner returned for one run. Error is set
// instead of returning a Go error so that runner failures become failing
// verdicts.
type ExecutionResult struct {
	Stdout        string `json:"stdout"`
	Stderr        string `json:"stderr"`
	ExitCode      int    `json:"exit_code"`
	Signal        string `json:"signal,omitempty"`
	CompileOutput string `json:"compile_output,omitempty"`
	Error         string `json:"error,omitempty"`
	Throttled     bool   `json:"throttled,omitempty"`
}

func (r ExecutionResult) Failed() bool {
	return r.Error != "" || r.Throttled
}

// SessionState is the per (user, test) working state handed to the finalizer.
type SessionState struct {
	TestID            string                `json:"test_id"`
	UserID            string                `json:"user_id"`
	StartedAt         time.Time             `json:"started_at"`
	SelectedChallenge string                `json:"selected_challenge"`
	Code              map[string]CodeBuffer `json:"code"`
	Verdicts          map[string][]Verdict  `json:"verdicts"`
}

type SessionView struct {
	TestID            string                `json:"test_id"`
	Status            SessionStatus         `json:"status"`
	StartedAt         *time.Time            `json:"started_at,omitempty"`
	Deadline          *time.Time            `json:"deadline,omitempty"`
	RemainingSeconds  int                   `json:"remaining_seconds"`
	SelectedChallenge string                `json:"selected_challenge,omitempty"`
	Code              map[string]CodeBuffer `json:"code,omitempty"`
	Verdicts          map[string][]Verdict  `json:"verdicts,omitempty"`
	Completed         []string              `json:"completed,omitempty"`
	Submission        *SubmissionRecord     `json:"submission,omitempty"`
}

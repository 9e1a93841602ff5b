package evaluator

import (
	"context"
	"testing"
	"time"

	"github.com/AryanShukla12173/quiz-app-sub000/internal/domain/model"
)

// scriptedClient answers by stdin; a stdin listed in throttleFirst is
// throttled that many times before it succeeds.
type scriptedClient struct {
	byStdin       map[string]model.ExecutionResult
	throttleFirst map[string]int
	calls         []string
}

func (c *scriptedClient) Execute(_ context.Context, _, _, stdin string) model.ExecutionResult {
	c.calls = append(c.calls, stdin)
	if c.throttleFirst[stdin] > 0 {
		c.throttleFirst[stdin]--
		return model.ExecutionResult{Throttled: true, Error: "rate limited"}
	}
	return c.byStdin[stdin]
}

func cases(pairs ...string) []model.TestCase {
	out := make([]model.TestCase, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, model.TestCase{ID: "tc" + pairs[i], Input: pairs[i], ExpectedOutput: pairs[i+1]})
	}
	return out
}

func TestEvaluatePreservesOrderAndTrimsOutput(t *testing.T) {
	client := &scriptedClient{byStdin: map[string]model.ExecutionResult{
		"2 3": {Stdout: "5\n"},
		"1 1": {Stdout: "  2  \n\n"},
		"4 4": {Stdout: "9\n"},
	}}
	ev := New(client, WithThrottleRetries(0, 0))

	verdicts := ev.Evaluate(context.Background(), "src", "python", cases("2 3", "5", "1 1", "2", "4 4", "8"))

	if len(verdicts) != 3 {
		t.Fatalf("expected 3 verdicts, got %d", len(verdicts))
	}
	want := []model.VerdictStatus{model.VerdictPassed, model.VerdictPassed, model.VerdictWrongAnswer}
	for i, v := range verdicts {
		if v.Status != want[i] {
			t.Fatalf("verdict %d: expected %s, got %s", i, want[i], v.Status)
		}
	}
	if verdicts[0].TestCaseID != "tc2 3" || verdicts[2].TestCaseID != "tc4 4" {
		t.Fatalf("verdict order does not follow test case order: %+v", verdicts)
	}
	if got := client.calls; len(got) != 3 || got[0] != "2 3" || got[1] != "1 1" || got[2] != "4 4" {
		t.Fatalf("expected sequential calls in order, got %v", got)
	}
}

func TestJudgeInnerWhitespaceIsSignificant(t *testing.T) {
	v := Judge(model.TestCase{ExpectedOutput: "1 2"}, model.ExecutionResult{Stdout: "1  2\n"})
	if v.Passed {
		t.Fatalf("inner whitespace difference must fail")
	}
}

func TestJudgeRunnerErrorFailsCaseWithDiagnostic(t *testing.T) {
	v := Judge(model.TestCase{ExpectedOutput: ""}, model.ExecutionResult{Error: "execution service unreachable"})
	if v.Passed || v.Status != model.VerdictExecutionError {
		t.Fatalf("expected execution error verdict, got %+v", v)
	}
	if v.Error != "execution service unreachable" {
		t.Fatalf("expected error text retained, got %q", v.Error)
	}
}

func TestJudgeNonZeroExitWithWrongOutputIsRuntimeError(t *testing.T) {
	v := Judge(model.TestCase{ExpectedOutput: "5"}, model.ExecutionResult{Stderr: "Traceback", ExitCode: 1})
	if v.Status != model.VerdictRuntimeError {
		t.Fatalf("expected runtime error, got %s", v.Status)
	}
}

func TestEvaluateContinuesAfterRunnerError(t *testing.T) {
	client := &scriptedClient{byStdin: map[string]model.ExecutionResult{
		"a": {Error: "boom"},
		"b": {Stdout: "B"},
	}}
	verdicts := New(client, WithThrottleRetries(0, 0)).Evaluate(context.Background(), "src", "python", cases("a", "A", "b", "B"))

	if verdicts[0].Passed || !verdicts[1].Passed {
		t.Fatalf("unexpected verdicts %+v", verdicts)
	}
}

func TestEvaluateRetriesThrottledCase(t *testing.T) {
	client := &scriptedClient{
		byStdin:       map[string]model.ExecutionResult{"x": {Stdout: "X"}},
		throttleFirst: map[string]int{"x": 2},
	}
	verdicts := New(client, WithThrottleRetries(3, time.Millisecond)).Evaluate(context.Background(), "src", "python", cases("x", "X"))

	if !verdicts[0].Passed {
		t.Fatalf("expected pass after retries, got %+v", verdicts[0])
	}
	if len(client.calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(client.calls))
	}
}

func TestEvaluateReportsPersistentThrottleSeparately(t *testing.T) {
	client := &scriptedClient{
		byStdin:       map[string]model.ExecutionResult{"x": {Stdout: "X"}},
		throttleFirst: map[string]int{"x": 10},
	}
	verdicts := New(client, WithThrottleRetries(1, time.Millisecond)).Evaluate(context.Background(), "src", "python", cases("x", "X"))

	if verdicts[0].Status != model.VerdictThrottled {
		t.Fatalf("expected throttled verdict, got %s", verdicts[0].Status)
	}
	if !AnyThrottled(verdicts) {
		t.Fatalf("AnyThrottled should report the throttled case")
	}
}

func TestFullyPassed(t *testing.T) {
	pass := model.Verdict{Passed: true}
	fail := model.Verdict{Passed: false}

	tests := []struct {
		name     string
		verdicts []model.Verdict
		want     bool
	}{
		{"all three pass", []model.Verdict{pass, pass, pass}, true},
		{"two of three pass", []model.Verdict{pass, pass, fail}, false},
		{"no verdicts", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FullyPassed(tt.verdicts); got != tt.want {
				t.Fatalf("FullyPassed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	client := &scriptedClient{byStdin: map[string]model.ExecutionResult{
		"2 3": {Stdout: "5\n"},
		"0 0": {Stdout: "1\n"},
	}}
	ev := New(client, WithThrottleRetries(0, 0))
	tcs := cases("2 3", "5", "0 0", "0")

	first := ev.Evaluate(context.Background(), "src", "python", tcs)
	second := ev.Evaluate(context.Background(), "src", "python", tcs)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("verdict %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

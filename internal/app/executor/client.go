package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/AryanShukla12173/quiz-app-sub000/internal/domain/model"

	json "github.com/bytedance/sonic"
)

// Client runs one program against one stdin. Failures are reported through
// ExecutionResult.Error, never as a Go error.
type Client interface {
	Execute(ctx context.Context, source, languageID, stdin string) model.ExecutionResult
}

// PistonClient talks to a Piston-compatible runner (POST {base}/execute).
type PistonClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ Client = (*PistonClient)(nil)

func NewPistonClient(baseURL string, httpClient *http.Client) *PistonClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &PistonClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type pistonFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type pistonRequest struct {
	Language string       `json:"language"`
	Version  string       `json:"version"`
	Files    []pistonFile `json:"files"`
	Stdin    string       `json:"stdin"`
}

type pistonStage struct {
	Stdout string  `json:"stdout"`
	Stderr string  `json:"stderr"`
	Output string  `json:"output"`
	Code   *int    `json:"code"`
	Signal *string `json:"signal"`
}

type pistonResponse struct {
	Language string       `json:"language"`
	Version  string       `json:"version"`
	Run      *pistonStage `json:"run"`
	Compile  *pistonStage `json:"compile"`
	Message  string       `json:"message"`
}

func (c *PistonClient) Execute(ctx context.Context, source, languageID, stdin string) model.ExecutionResult {
	lang, ok := model.LookupLanguage(languageID)
	if !ok {
		return model.ExecutionResult{Error: fmt.Sprintf("unsupported language %q", languageID)}
	}

	body, err := json.Marshal(pistonRequest{
		Language: lang.Runtime,
		Version:  lang.Version,
		Files:    []pistonFile{{Name: lang.FileName, Content: source}},
		Stdin:    stdin,
	})
	if err != nil {
		return model.ExecutionResult{Error: fmt.Sprintf("encode execution request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return model.ExecutionResult{Error: fmt.Sprintf("build execution request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.ExecutionResult{Error: fmt.Sprintf("execution service unreachable: %v", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return model.ExecutionResult{Error: fmt.Sprintf("read execution response: %v", err)}
	}

	var payload pistonResponse
	decodeErr := json.Unmarshal(raw, &payload)

	if resp.StatusCode == http.StatusTooManyRequests {
		return model.ExecutionResult{Throttled: true, Error: errorMessage(resp.StatusCode, payload.Message)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.ExecutionResult{Error: errorMessage(resp.StatusCode, payload.Message)}
	}
	if decodeErr != nil {
		return model.ExecutionResult{Error: fmt.Sprintf("decode execution response: %v", decodeErr)}
	}
	if isRateLimitMessage(payload.Message) {
		return model.ExecutionResult{Throttled: true, Error: payload.Message}
	}
	if payload.Run == nil {
		if payload.Message != "" {
			return model.ExecutionResult{Error: payload.Message}
		}
		return model.ExecutionResult{Error: "execution response has no run stage"}
	}

	result := model.ExecutionResult{
		Stdout: payload.Run.Stdout,
		Stderr: payload.Run.Stderr,
	}
	if payload.Run.Code != nil {
		result.ExitCode = *payload.Run.Code
	}
	if payload.Run.Signal != nil {
		result.Signal = *payload.Run.Signal
	}
	if payload.Compile != nil && payload.Compile.Code != nil && *payload.Compile.Code != 0 {
		result.CompileOutput = payload.Compile.Output
		if result.ExitCode == 0 {
			result.ExitCode = *payload.Compile.Code
		}
	}
	return result
}

func errorMessage(status int, message string) string {
	if message == "" {
		return fmt.Sprintf("execution service returned status %d", status)
	}
	return fmt.Sprintf("execution service returned status %d: %s", status, message)
}

func isRateLimitMessage(message string) bool {
	return strings.Contains(strings.ToLower(message), "rate limit")
}

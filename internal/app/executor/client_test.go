package executor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/bytedance/sonic"
)

func TestExecuteSendsLanguageVersionAndStdin(t *testing.T) {
	var got pistonRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/execute" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.ConfigDefault.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{"language":"python","version":"3.10.0","run":{"stdout":"5\n","stderr":"","code":0,"signal":null,"output":"5\n"}}`))
	}))
	defer srv.Close()

	client := NewPistonClient(srv.URL+"/", srv.Client())
	res := client.Execute(context.Background(), "print(sum(map(int, input().split())))", "python", "2 3")

	if res.Error != "" {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	if res.Stdout != "5\n" || res.ExitCode != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if got.Language != "python" || got.Version != "3.10.0" || got.Stdin != "2 3" {
		t.Fatalf("unexpected request %+v", got)
	}
	if len(got.Files) != 1 || got.Files[0].Name != "main.py" {
		t.Fatalf("unexpected files %+v", got.Files)
	}
}

func TestExecuteMapsCppToRunnerLanguage(t *testing.T) {
	var got pistonRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.ConfigDefault.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"run":{"stdout":"","stderr":"","code":0}}`))
	}))
	defer srv.Close()

	NewPistonClient(srv.URL, srv.Client()).Execute(context.Background(), "int main(){}", "cpp", "")
	if got.Language != "c++" {
		t.Fatalf("expected runner language c++, got %q", got.Language)
	}
}

func TestExecuteNonSuccessStatusBecomesErrorResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"python-9.9.9 runtime is unknown"}`))
	}))
	defer srv.Close()

	res := NewPistonClient(srv.URL, srv.Client()).Execute(context.Background(), "x", "python", "")
	if res.Stdout != "" {
		t.Fatalf("expected empty stdout, got %q", res.Stdout)
	}
	if !strings.Contains(res.Error, "runtime is unknown") {
		t.Fatalf("expected runner message in error, got %q", res.Error)
	}
	if res.Throttled {
		t.Fatalf("400 must not be reported as throttled")
	}
}

func TestExecuteTooManyRequestsIsThrottled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"message":"Requests are being rate limited"}`))
	}))
	defer srv.Close()

	res := NewPistonClient(srv.URL, srv.Client()).Execute(context.Background(), "x", "python", "")
	if !res.Throttled || res.Error == "" {
		t.Fatalf("expected throttled result, got %+v", res)
	}
}

func TestExecuteUnreachableServiceBecomesErrorResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	res := NewPistonClient(url, &http.Client{Timeout: time.Second}).Execute(context.Background(), "x", "python", "")
	if res.Error == "" || res.Stdout != "" {
		t.Fatalf("expected transport error result, got %+v", res)
	}
}

func TestExecuteUnsupportedLanguage(t *testing.T) {
	res := NewPistonClient("http://127.0.0.1:1", nil).Execute(context.Background(), "x", "cobol", "")
	if !strings.Contains(res.Error, "unsupported language") {
		t.Fatalf("expected unsupported language error, got %q", res.Error)
	}
}

func TestExecuteReportsCompileFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"compile":{"stdout":"","stderr":"error: expected ';'","output":"error: expected ';'","code":1},"run":{"stdout":"","stderr":"","code":null}}`))
	}))
	defer srv.Close()

	res := NewPistonClient(srv.URL, srv.Client()).Execute(context.Background(), "int main(){", "cpp", "")
	if res.Error != "" {
		t.Fatalf("compile failure is a program outcome, not a client error: %q", res.Error)
	}
	if res.ExitCode != 1 || !strings.Contains(res.CompileOutput, "expected ';'") {
		t.Fatalf("unexpected result %+v", res)
	}
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zhangyunhao116/agentexec"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, cfg *agentexec.Config) *Server {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires /bin/sh")
	}
	cfg.Shell = "/bin/sh"
	tool, err := agentexec.NewTool(cfg)
	if err != nil {
		t.Fatalf("NewTool() error: %v", err)
	}
	return New(tool, nil)
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, &agentexec.Config{})
	w := do(t, s, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := decode[map[string]string](t, w); got["status"] != "ok" {
		t.Errorf("body = %v", got)
	}
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t, &agentexec.Config{})
	w := do(t, s, http.MethodGet, "/healthz", "")
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := w.Header().Get("Cache-Control"); !strings.Contains(got, "no-store") {
		t.Errorf("Cache-Control = %q", got)
	}
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t, &agentexec.Config{})

	w := do(t, s, http.MethodGet, "/healthz", "")
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("response has no request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("request id = %q, want propagated abc-123", got)
	}
}

func TestToolDefinition(t *testing.T) {
	s := newTestServer(t, &agentexec.Config{})
	w := do(t, s, http.MethodGet, "/v1/tool", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	def := decode[agentexec.Definition](t, w)
	if def.Type != "function" || def.Function.Name != "exec" {
		t.Errorf("definition = %+v", def)
	}
}

func TestExec(t *testing.T) {
	dir := t.TempDir()
	s := newTestServer(t, agentexec.WorkspaceConfig(dir))

	tests := []struct {
		name string
		body string
		code int
		want string
	}{
		{"echo", `{"command":"echo hi"}`, http.StatusOK, "hi\n"},
		{"blocked", `{"command":"cat /etc/passwd"}`, http.StatusOK, "Error: Command blocked by safety guard (path outside working dir)"},
		{"nonzero", `{"command":"exit 4"}`, http.StatusOK, "\nExit code: 4"},
		{"working dir", `{"command":"pwd -P","working_dir":"` + dir + `"}`, http.StatusOK, ""},
		{"missing command", `{}`, http.StatusBadRequest, ""},
		{"blank command", `{"command":"   "}`, http.StatusBadRequest, ""},
		{"malformed", `{"command":`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/v1/exec", tt.body)
			if w.Code != tt.code {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.code, w.Body.String())
			}
			if tt.code != http.StatusOK {
				if got := decode[map[string]string](t, w); got["error"] == "" {
					t.Errorf("error body = %s", w.Body.String())
				}
				return
			}
			resp := decode[execResponse](t, w)
			if resp.ID == "" {
				t.Error("response id is empty")
			}
			if tt.want != "" && resp.Result != tt.want {
				t.Errorf("result = %q, want %q", resp.Result, tt.want)
			}
		})
	}
}

func TestExecBodyTooLarge(t *testing.T) {
	s := newTestServer(t, &agentexec.Config{})
	body := `{"command":"echo ` + strings.Repeat("a", MaxBodySize) + `"}`
	w := do(t, s, http.MethodPost, "/v1/exec", body)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
}

func TestCheck(t *testing.T) {
	s := newTestServer(t, &agentexec.Config{AllowPatterns: []string{`^git `}})

	tests := []struct {
		body    string
		allowed bool
		reason  string
	}{
		{`{"command":"git status"}`, true, "none"},
		{`{"command":"ls"}`, false, "not_allowlisted"},
		{`{"command":"git reset && reboot"}`, false, "dangerous_pattern"},
	}
	for _, tt := range tests {
		w := do(t, s, http.MethodPost, "/v1/check", tt.body)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		resp := decode[checkResponse](t, w)
		if resp.Allowed != tt.allowed || resp.Reason != tt.reason {
			t.Errorf("check %s = %+v, want allowed=%v reason=%s", tt.body, resp, tt.allowed, tt.reason)
		}
		if !tt.allowed && !strings.HasPrefix(resp.Message, "Error: Command blocked by safety guard") {
			t.Errorf("message = %q", resp.Message)
		}
	}
}

func TestSetTool(t *testing.T) {
	s := newTestServer(t, &agentexec.Config{})
	if w := do(t, s, http.MethodPost, "/v1/check", `{"command":"ls"}`); !decode[checkResponse](t, w).Allowed {
		t.Fatal("ls should be allowed before the swap")
	}

	strict, err := agentexec.NewTool(&agentexec.Config{Shell: "/bin/sh", AllowPatterns: []string{`^git `}})
	if err != nil {
		t.Fatal(err)
	}
	s.SetTool(strict)
	if s.Tool() != strict {
		t.Error("Tool() does not return the swapped tool")
	}
	if w := do(t, s, http.MethodPost, "/v1/check", `{"command":"ls"}`); decode[checkResponse](t, w).Allowed {
		t.Error("ls should be blocked after the swap")
	}
}

func TestServeShutdown(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
	tool, err := agentexec.NewTool(&agentexec.Config{Shell: "/bin/sh"})
	if err != nil {
		t.Fatal(err)
	}
	s := New(tool, &Config{MaxConnections: 2})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String()
	resp, err := http.Post(url+"/v1/exec", "application/json", bytes.NewBufferString(`{"command":"echo served"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	var body execResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if body.Result != "served\n" {
		t.Errorf("result = %q, want %q", body.Result, "served\n")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error: %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}

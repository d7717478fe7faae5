// Package testutil provides shared test infrastructure for e2e tests.
// Provides a subprocess-based server fixture that builds and runs the actual
// server binary, starts once via sync.Once, and supports cleanup in TestMain.
package testutil

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"
)

// =============================================================================
// Server Fixture: Subprocess-based server that starts once
// =============================================================================

var (
	testServer  *ServerFixture
	testOnce    sync.Once
	testCleanup func()
	testMu      sync.Mutex
)

// ServerFixture holds the running server instance
type ServerFixture struct {
	cmd        *exec.Cmd
	BaseURL    string
	Port       int
	Logs       *LogCapture
	ProjectDir string
	cancel     context.CancelFunc
}

// LogCapture captures server logs for inspection
type LogCapture struct {
	mu    sync.RWMutex
	lines []string
}

func (l *LogCapture) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range strings.Split(string(p), "\n") {
		if line != "" {
			l.lines = append(l.lines, line)
		}
	}
	return len(p), nil
}

// Lines returns a copy of all captured log lines
func (l *LogCapture) Lines() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	cp := make([]string, len(l.lines))
	copy(cp, l.lines)
	return cp
}

// FindEvent returns the first JSON log record whose msg is event and whose
// fields include every key/value in match.
func (l *LogCapture) FindEvent(event string, match map[string]any) (map[string]any, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, line := range l.lines {
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		if rec["msg"] != event {
			continue
		}
		ok := true
		for k, v := range match {
			if rec[k] != v {
				ok = false
				break
			}
		}
		if ok {
			return rec, true
		}
	}
	return nil, false
}

// WaitForEvent waits for a log record matching FindEvent.
func (l *LogCapture) WaitForEvent(event string, match map[string]any, timeout time.Duration) (map[string]any, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if rec, ok := l.FindEvent(event, match); ok {
			return rec, nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return nil, fmt.Errorf("timeout waiting for log event %s %v", event, match)
}

// GetServer returns the shared server fixture, starting it if needed.
// Uses sync.Once to ensure server is started only once across all tests.
func GetServer(t testing.TB) *ServerFixture {
	testMu.Lock()
	defer testMu.Unlock()

	testOnce.Do(func() {
		testServer, testCleanup = startServer(t)
	})
	if testServer == nil {
		t.Fatal("server fixture failed to start in an earlier test")
	}
	return testServer
}

// Cleanup stops the server. Call from TestMain after m.Run().
func Cleanup() {
	testMu.Lock()
	defer testMu.Unlock()
	if testCleanup != nil {
		testCleanup()
		testCleanup = nil
	}
}

func startServer(t testing.TB) (*ServerFixture, func()) {
	projectRoot := FindProjectRoot()

	binDir, err := os.MkdirTemp("", "e2e-server-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	binary := filepath.Join(binDir, "server")
	buildCmd := exec.Command("go", "build", "-o", binary, "./cmd/server")
	buildCmd.Dir = projectRoot
	if out, err := buildCmd.CombinedOutput(); err != nil {
		_ = os.RemoveAll(binDir)
		t.Fatalf("Build failed: %v\n%s", err, out)
	}

	port := findFreePort()

	// Run with the in-memory archive and a low burst so rate limiting is observable.
	logs := &LogCapture{}
	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, binary, "--test", "--addr", fmt.Sprintf("127.0.0.1:%d", port))
	cmd.Dir = binDir
	cmd.Env = append(os.Environ(),
		"LOG_LEVEL=debug",
		"RATE_LIMIT_RPS=50",
		"RATE_LIMIT_BURST=200",
	)

	stdout, _ := cmd.StdoutPipe()
	stderr, _ := cmd.StderrPipe()

	if err := cmd.Start(); err != nil {
		cancel()
		_ = os.RemoveAll(binDir)
		t.Fatalf("Failed to start server: %v", err)
	}

	go captureLines(stdout, logs, "[SERVER]")
	go captureLines(stderr, logs, "[SERVER-ERR]")

	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)

	// Wait for server ready
	client := &http.Client{Timeout: 500 * time.Millisecond}
	deadline := time.Now().Add(10 * time.Second)
	ready := false
	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL + "/health")
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			t.Logf("Server started on port %d", port)
			ready = true
			break
		}
		if resp != nil {
			resp.Body.Close()
		}
		time.Sleep(100 * time.Millisecond)
	}
	if !ready {
		cancel()
		_ = os.RemoveAll(binDir)
		t.Fatalf("Server did not become ready. Logs:\n%s", strings.Join(logs.Lines(), "\n"))
	}

	fixture := &ServerFixture{
		cmd:        cmd,
		BaseURL:    baseURL,
		Port:       port,
		Logs:       logs,
		ProjectDir: projectRoot,
		cancel:     cancel,
	}

	cleanup := func() {
		_ = cmd.Process.Signal(syscall.SIGTERM)
		done := make(chan struct{})
		go func() {
			_ = cmd.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
		}
		cancel()
		_ = os.RemoveAll(binDir)
	}

	return fixture, cleanup
}

func captureLines(r io.Reader, logs *LogCapture, prefix string) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		_, _ = logs.Write([]byte(line + "\n"))
		fmt.Println(prefix, line)
	}
}

// FindProjectRoot locates the project root by finding go.mod
func FindProjectRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			panic("could not find project root")
		}
		dir = parent
	}
}

func findFreePort() int {
	l, _ := net.Listen("tcp", "127.0.0.1:0")
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// =============================================================================
// HTTP Client Helpers
// =============================================================================

// NewHTTPClient creates an HTTP client with a no-redirect policy
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"storyboard/internal/config"
	"storyboard/internal/testsupport"
)

type cliTestEnv struct {
	configPath  string
	projectPath string
	baseDir     string
	server      *fakeOpenRouter
}

// fakeOpenRouter answers image requests with one PNG and streams a fixed
// video prompt for text requests.
type fakeOpenRouter struct {
	*httptest.Server

	mu          sync.Mutex
	imageCalls  int
	streamCalls int
}

func newFakeOpenRouter(t *testing.T) *fakeOpenRouter {
	t.Helper()
	f := &fakeOpenRouter{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Stream bool `json:"stream"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		if req.Stream {
			f.streamCalls++
		} else {
			f.imageCalls++
		}
		f.mu.Unlock()

		if req.Stream {
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Wide shot \"}}]}\n\n")
			fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"of the scene.\"}}]}\n\n")
			fmt.Fprint(w, "data: [DONE]\n\n")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"finish_reason":"stop","message":{"content":"","images":[{"type":"image_url","image_url":{"url":"data:image/png;base64,iVBORw0KGgo="}}]}}]}`)
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeOpenRouter) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.imageCalls, f.streamCalls
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	server := newFakeOpenRouter(t)
	opts = append([]testsupport.ConfigOption{
		testsupport.WithAPIKey("test-key"),
		testsupport.WithBaseURL(server.URL),
		testsupport.WithConcurrency(2, 1),
	}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Paths.LogDir = ""
	cfg.Logging.Level = "error"

	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("OPENROUTER_API_KEY", "")

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		configPath:  configPath,
		projectPath: filepath.Join(base, "project", "episode.json"),
		baseDir:     base,
		server:      server,
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	testsupport.WriteFile(t, path, data)
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath, "--project", env.projectPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func mustRunCLI(t *testing.T, env *cliTestEnv, args ...string) string {
	t.Helper()
	out, stderr, err := runCLI(t, env, args...)
	if err != nil {
		t.Fatalf("storyboard %s: %v (stderr %q)", strings.Join(args, " "), err, stderr)
	}
	return out
}

func writeScript(t *testing.T, env *cliTestEnv) string {
	t.Helper()
	content := "STT,Deutsch,Tiếng Việt,Prompt,Bối cảnh\n" +
		"lan3,Hallo,Xin chào,greeting,market\n" +
		"hung4,Danke,Cảm ơn,thanks,kitchen\n" +
		"xyz9,Tschüss,Tạm biệt,farewell,harbor\n"
	return testsupport.WriteFile(t, filepath.Join(env.baseDir, "script.csv"), []byte(content))
}

func writePNG(t *testing.T, env *cliTestEnv, name string) string {
	t.Helper()
	return testsupport.WritePNG(t, filepath.Join(env.baseDir, name))
}

func decodeRows(t *testing.T, out string) []rowJSON {
	t.Helper()
	var rows []rowJSON
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode rows json: %v\n%s", err, out)
	}
	return rows
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package controlplane

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/wardenhq/warden/lib/clock"
	"github.com/wardenhq/warden/lib/config"
	"github.com/wardenhq/warden/lib/credential"
	"github.com/wardenhq/warden/lib/session"
	"github.com/wardenhq/warden/lib/supervisor"
	"github.com/wardenhq/warden/lib/testutil"
	"github.com/wardenhq/warden/lib/workdir"
	"github.com/wardenhq/warden/sandbox"
)

// fakeRunner records jobs and answers with a canned result.
type fakeRunner struct {
	mu     sync.Mutex
	jobs   []sandbox.Job
	result sandbox.Result
}

func (f *fakeRunner) Run(ctx context.Context, job sandbox.Job) *sandbox.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	result := f.result
	result.Tool = job.Tool
	if result.Status == "" {
		result.Status = sandbox.StatusSucceeded
	}
	return &result
}

func (f *fakeRunner) Jobs() []sandbox.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sandbox.Job{}, f.jobs...)
}

// blockingRunner holds every job until its context ends.
type blockingRunner struct {
	started chan struct{}
	stopped chan error
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{started: make(chan struct{}), stopped: make(chan error, 1)}
}

func (b *blockingRunner) Run(ctx context.Context, job sandbox.Job) *sandbox.Result {
	close(b.started)
	<-ctx.Done()
	b.stopped <- ctx.Err()
	return &sandbox.Result{Tool: job.Tool, Status: sandbox.StatusTimedOut, ExitCode: -1}
}

// testPlane is a fully wired control plane over temp directories, a
// fake clock, a fake supervisor and a fake runner.
type testPlane struct {
	handler    http.Handler
	clock      *clock.FakeClock
	store      *credential.Store
	supervisor *supervisor.Fake
	runner     *fakeRunner
	settings   *config.Config
	apps       string
	logs       string
}

func newTestPlane(t *testing.T, configure ...func(*config.Config)) *testPlane {
	t.Helper()
	root := t.TempDir()

	settings := config.Default()
	settings.Paths = config.PathsConfig{
		Root:  root,
		State: filepath.Join(root, "state"),
		Apps:  filepath.Join(root, "apps"),
		Logs:  filepath.Join(root, "logs"),
	}
	for _, apply := range configure {
		apply(settings)
	}
	if err := settings.EnsurePaths(); err != nil {
		t.Fatalf("EnsurePaths: %v", err)
	}

	logger := slog.New(slog.DiscardHandler)
	store, err := credential.Open(settings.Paths.State, logger)
	if err != nil {
		t.Fatalf("credential.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if _, err := store.EnsureProvisioned(); err != nil {
		t.Fatalf("EnsureProvisioned: %v", err)
	}

	fakeClock := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	authority := session.NewAuthority(store, session.Config{
		Enabled:  settings.AuthEnabled(),
		Lifetime: settings.TokenLifetime(),
		Clock:    fakeClock,
		Logger:   logger,
	})

	apps, err := workdir.New(settings.Paths.Apps)
	if err != nil {
		t.Fatalf("workdir.New: %v", err)
	}
	logs, err := supervisor.NewLogLayout(settings.Paths.Logs)
	if err != nil {
		t.Fatalf("NewLogLayout: %v", err)
	}

	plane := &testPlane{
		clock:      fakeClock,
		store:      store,
		supervisor: supervisor.NewFake(),
		runner:     &fakeRunner{},
		settings:   settings,
		apps:       apps.Path(),
		logs:       settings.Paths.Logs,
	}
	server, err := NewServer(ServerConfig{
		Settings:   settings,
		Authority:  authority,
		Supervisor: plane.supervisor,
		Runner:     plane.runner,
		Apps:       apps,
		Logs:       logs,
		Clock:      fakeClock,
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	plane.handler = server.Handler()
	return plane
}

// do sends a request with an optional JSON body and bearer token.
func (p *testPlane) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	request := httptest.NewRequest(method, path, reader)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	p.handler.ServeHTTP(recorder, request)
	return recorder
}

// login returns a valid token for the default password.
func (p *testPlane) login(t *testing.T) string {
	t.Helper()
	response := p.do(t, "POST", "/api/auth/login", map[string]string{"password": credential.DefaultPassword}, "")
	if response.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", response.Code, response.Body)
	}
	token, _ := readJSON[map[string]any](t, response)["token"].(string)
	if token == "" {
		t.Fatalf("login returned no token: %s", response.Body)
	}
	return token
}

func readJSON[T any](t *testing.T, response *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	if err := json.Unmarshal(response.Body.Bytes(), &value); err != nil {
		t.Fatalf("decoding response %q: %v", response.Body.String(), err)
	}
	return value
}

func expectStatus(t *testing.T, response *httptest.ResponseRecorder, want int) {
	t.Helper()
	if response.Code != want {
		t.Fatalf("status = %d, want %d; body %s", response.Code, want, response.Body)
	}
}

func expectError(t *testing.T, response *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	expectStatus(t, response, status)
	body := readJSON[map[string]any](t, response)
	if body["error"] != message {
		t.Errorf("error = %q, want %q", body["error"], message)
	}
}

// --- Server lifecycle ---

func TestServer_StartAndShutdown(t *testing.T) {
	plane := newTestPlane(t)
	settings := *plane.settings
	settings.ListenAddress = "127.0.0.1"
	settings.Port = 0

	apps, _ := workdir.New(settings.Paths.Apps)
	logs, _ := supervisor.NewLogLayout(settings.Paths.Logs)
	server, err := NewServer(ServerConfig{
		Settings:   &settings,
		Authority:  session.NewAuthority(plane.store, session.Config{Enabled: true}),
		Supervisor: plane.supervisor,
		Runner:     plane.runner,
		Apps:       apps,
		Logs:       logs,
		Logger:     slog.New(slog.DiscardHandler),
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := server.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	response, err := http.Get("http://" + server.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	response.Body.Close()
	if response.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", response.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestServer_ShutdownCancelsRunningJobs(t *testing.T) {
	disabled := false
	plane := newTestPlane(t, func(settings *config.Config) {
		settings.Auth.Enabled = &disabled
	})
	testutil.WriteFile(t, filepath.Join(plane.apps, "site", "package.json"), "{}")

	settings := *plane.settings
	settings.ListenAddress = "127.0.0.1"
	settings.Port = 0
	runner := newBlockingRunner()
	apps, _ := workdir.New(settings.Paths.Apps)
	logs, _ := supervisor.NewLogLayout(settings.Paths.Logs)
	server, err := NewServer(ServerConfig{
		Settings:   &settings,
		Authority:  session.NewAuthority(plane.store, session.Config{Enabled: false}),
		Supervisor: plane.supervisor,
		Runner:     runner,
		Apps:       apps,
		Logs:       logs,
		Logger:     slog.New(slog.DiscardHandler),
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := server.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	go func() {
		response, err := http.Post("http://"+server.Addr().String()+"/api/pm2/npm/install",
			"application/json", bytes.NewReader([]byte(`{"directory":"site"}`)))
		if err == nil {
			response.Body.Close()
		}
	}()
	testutil.RequireClosed(t, runner.started, 10*time.Second, "install job never started")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err = server.Shutdown(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Shutdown error = %v, want deadline exceeded", err)
	}

	// Shutdown waits for the handler, so the job has already stopped.
	select {
	case cause := <-runner.stopped:
		if !errors.Is(cause, context.Canceled) {
			t.Errorf("job context ended with %v, want canceled", cause)
		}
	default:
		t.Fatal("job still running after Shutdown returned")
	}
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	if _, err := NewServer(ServerConfig{}); err == nil {
		t.Error("NewServer with no dependencies succeeded")
	}
}

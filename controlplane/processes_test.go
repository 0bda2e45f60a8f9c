// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package controlplane

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wardenhq/warden/lib/supervisor"
	"github.com/wardenhq/warden/lib/testutil"
)

// addProcess registers a process with log files under the logs root.
func (p *testPlane) addProcess(t *testing.T, name string) supervisor.LogFiles {
	t.Helper()
	layout, err := supervisor.NewLogLayout(p.logs)
	if err != nil {
		t.Fatalf("NewLogLayout: %v", err)
	}
	files, err := layout.Files(name)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if err := p.supervisor.Start(context.Background(), supervisor.StartSpec{Name: name, Logs: files}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return files
}

// --- Logs ---

func TestReadLogs_Tail(t *testing.T) {
	plane := newTestPlane(t)
	token := plane.login(t)
	files := plane.addProcess(t, "api")
	testutil.WriteFile(t, files.Combined, "one\ntwo\n\nthree\nfour\n")

	response := plane.do(t, "GET", "/api/pm2/processes/api/logs?lines=2", nil, token)
	expectStatus(t, response, http.StatusOK)
	body := readJSON[struct {
		Logs       []string `json:"logs"`
		TotalLines int      `json:"totalLines"`
		From       string   `json:"from"`
		Type       string   `json:"type"`
		File       string   `json:"file"`
	}](t, response)

	if strings.Join(body.Logs, ",") != "three,four" {
		t.Errorf("logs = %v, want [three four]", body.Logs)
	}
	if body.TotalLines != 2 || body.From != "tail" || body.Type != "combined" {
		t.Errorf("body = %+v", body)
	}
	if body.File != files.Combined {
		t.Errorf("file = %q, want %q", body.File, files.Combined)
	}
}

func TestReadLogs_HeadOfErrorStream(t *testing.T) {
	plane := newTestPlane(t)
	token := plane.login(t)
	files := plane.addProcess(t, "api")
	testutil.WriteFile(t, files.Error, "e1\n\ne3\ne4\n")

	response := plane.do(t, "GET", "/api/pm2/processes/0/logs?from=head&type=error&lines=3", nil, token)
	expectStatus(t, response, http.StatusOK)
	body := readJSON[map[string]any](t, response)
	logs, _ := body["logs"].([]any)
	if len(logs) != 3 || logs[0] != "e1" || logs[1] != "" {
		t.Errorf("logs = %v, want [e1  e3]", logs)
	}
	if body["from"] != "head" || body["type"] != "error" {
		t.Errorf("body = %v", body)
	}
}

func TestReadLogs_MissingAndEmptyFiles(t *testing.T) {
	plane := newTestPlane(t)
	token := plane.login(t)
	files := plane.addProcess(t, "api")

	response := plane.do(t, "GET", "/api/pm2/processes/api/logs", nil, token)
	expectStatus(t, response, http.StatusOK)
	body := readJSON[map[string]any](t, response)
	if body["message"] != "Log file not found or empty" {
		t.Errorf("message = %v", body["message"])
	}
	if logs, ok := body["logs"].([]any); !ok || len(logs) != 0 {
		t.Errorf("logs = %v, want []", body["logs"])
	}

	testutil.WriteFile(t, files.Combined, "")
	response = plane.do(t, "GET", "/api/pm2/processes/api/logs", nil, token)
	if readJSON[map[string]any](t, response)["message"] != "Log file is empty" {
		t.Errorf("body = %s", response.Body)
	}
}

func TestReadLogs_Errors(t *testing.T) {
	plane := newTestPlane(t)
	token := plane.login(t)
	plane.addProcess(t, "api")

	expectError(t, plane.do(t, "GET", "/api/pm2/processes/ghost/logs", nil, token),
		http.StatusNotFound, "Process not found")
	expectStatus(t, plane.do(t, "GET", "/api/pm2/processes/api/logs?from=middle", nil, token),
		http.StatusBadRequest)
	expectStatus(t, plane.do(t, "GET", "/api/pm2/processes/api/logs?type=debug", nil, token),
		http.StatusBadRequest)
}

// --- Processes ---

func TestListAndDescribeProcesses(t *testing.T) {
	plane := newTestPlane(t)
	token := plane.login(t)
	plane.addProcess(t, "api")
	plane.addProcess(t, "worker")

	response := plane.do(t, "GET", "/api/pm2/processes", nil, token)
	expectStatus(t, response, http.StatusOK)
	list := readJSON[[]map[string]any](t, response)
	if len(list) != 2 {
		t.Fatalf("list = %v", list)
	}
	env, _ := list[0]["pm2_env"].(map[string]any)
	if env["status"] != "online" {
		t.Errorf("pm2_env.status = %v", env["status"])
	}

	response = plane.do(t, "GET", "/api/pm2/processes/worker", nil, token)
	expectStatus(t, response, http.StatusOK)
	if readJSON[map[string]any](t, response)["pm_id"] != float64(1) {
		t.Errorf("describe worker = %s", response.Body)
	}

	expectError(t, plane.do(t, "GET", "/api/pm2/processes/ghost", nil, token),
		http.StatusNotFound, "Process not found")
}

func TestStartProcess(t *testing.T) {
	plane := newTestPlane(t)
	token := plane.login(t)
	testutil.WriteFile(t, filepath.Join(plane.apps, "api", "server.js"), "console.log('hi')\n")

	response := plane.do(t, "POST", "/api/pm2/processes/start", map[string]any{
		"script": "api/server.js",
		"env":    map[string]string{"PORT": "8080"},
	}, token)
	expectStatus(t, response, http.StatusOK)
	body := readJSON[map[string]any](t, response)
	if body["message"] != "Process started successfully" || body["name"] != "server" {
		t.Errorf("body = %v", body)
	}

	process, err := plane.supervisor.Describe(context.Background(), "server")
	if err != nil {
		t.Fatalf("Describe(server): %v", err)
	}
	if process.Env.CombinedLog != filepath.Join(plane.logs, "server", "combined.log") {
		t.Errorf("combined log = %q", process.Env.CombinedLog)
	}
	if info, err := os.Stat(filepath.Join(plane.logs, "server")); err != nil || !info.IsDir() {
		t.Errorf("log directory not created: %v", err)
	}
}

func TestStartProcess_Rejections(t *testing.T) {
	plane := newTestPlane(t)
	token := plane.login(t)
	testutil.WriteFile(t, filepath.Join(plane.apps, "api", "server.js"), "")

	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"no script", map[string]any{}, http.StatusBadRequest},
		{"outside apps", map[string]any{"script": "../../etc/passwd"}, http.StatusForbidden},
		{"absolute outside", map[string]any{"script": "/etc/passwd"}, http.StatusForbidden},
		{"missing script", map[string]any{"script": "api/absent.js"}, http.StatusNotFound},
		{"bad name", map[string]any{"script": "api/server.js", "name": "--force"}, http.StatusBadRequest},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			expectStatus(t, plane.do(t, "POST", "/api/pm2/processes/start", test.body, token), test.status)
		})
	}
	if len(plane.supervisor.Calls) != 0 {
		t.Errorf("supervisor called for rejected starts: %v", plane.supervisor.Calls)
	}
}

func TestProcessCommands(t *testing.T) {
	plane := newTestPlane(t)
	token := plane.login(t)
	plane.addProcess(t, "api")

	tests := []struct {
		path    string
		message string
	}{
		{"/api/pm2/processes/api/stop", "Process stopped successfully"},
		{"/api/pm2/processes/api/restart", "Process restarted successfully"},
		{"/api/pm2/processes/0/flush-logs", "Logs flushed successfully"},
	}
	for _, test := range tests {
		response := plane.do(t, "POST", test.path, nil, token)
		expectStatus(t, response, http.StatusOK)
		if got := readJSON[map[string]any](t, response)["message"]; got != test.message {
			t.Errorf("POST %s message = %v, want %q", test.path, got, test.message)
		}
	}

	expectError(t, plane.do(t, "POST", "/api/pm2/processes/ghost/stop", nil, token),
		http.StatusNotFound, "Process not found")
	expectStatus(t, plane.do(t, "POST", "/api/pm2/processes/-s/stop", nil, token), http.StatusBadRequest)
}

func TestDeleteProcess(t *testing.T) {
	plane := newTestPlane(t)
	token := plane.login(t)
	files := plane.addProcess(t, "api")
	testutil.WriteFile(t, files.Output, "bye\n")
	plane.addProcess(t, "worker")

	response := plane.do(t, "DELETE", "/api/pm2/processes/api", nil, token)
	expectStatus(t, response, http.StatusOK)
	body := readJSON[map[string]any](t, response)
	if body["logsDeleted"] != true || body["message"] != "Process and logs deleted successfully" {
		t.Errorf("body = %v", body)
	}
	if _, err := os.Stat(files.Dir); !os.IsNotExist(err) {
		t.Errorf("log directory survived: %v", err)
	}

	response = plane.do(t, "DELETE", "/api/pm2/processes/worker", nil, token)
	expectStatus(t, response, http.StatusOK)
	body = readJSON[map[string]any](t, response)
	if body["logsDeleted"] != false || body["message"] != "Process deleted successfully (no logs found)" {
		t.Errorf("body = %v", body)
	}

	expectStatus(t, plane.do(t, "DELETE", "/api/pm2/processes/api", nil, token), http.StatusNotFound)
}

func TestSystem(t *testing.T) {
	plane := newTestPlane(t)
	token := plane.login(t)
	plane.addProcess(t, "api")
	plane.addProcess(t, "worker")
	if err := plane.supervisor.Stop(context.Background(), "worker"); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	response := plane.do(t, "GET", "/api/pm2/system", nil, token)
	expectStatus(t, response, http.StatusOK)
	body := readJSON[map[string]any](t, response)

	for field, want := range map[string]any{
		"totalProcesses":   float64(2),
		"runningProcesses": float64(1),
		"stoppedProcesses": float64(1),
		"erroredProcesses": float64(0),
		"serverPort":       float64(3000),
		"corsEnabled":      false,
	} {
		if body[field] != want {
			t.Errorf("%s = %v, want %v", field, body[field], want)
		}
	}
	if platform, _ := body["platform"].(string); platform == "" || platform[:1] != strings.ToUpper(platform[:1]) {
		t.Errorf("platform = %q, want capitalized", platform)
	}
	if host, _ := body["host"].(map[string]any); host == nil || host["cpus"] == nil {
		t.Errorf("host = %v", body["host"])
	}
}

func TestSupervisorFailure(t *testing.T) {
	plane := newTestPlane(t)
	token := plane.login(t)
	plane.supervisor.Err = fmt.Errorf("daemon socket missing")

	expectError(t, plane.do(t, "GET", "/api/pm2/processes", nil, token),
		http.StatusInternalServerError, "Internal server error")
}

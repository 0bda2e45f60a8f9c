// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// recordingTB captures Fatalf instead of stopping the test. Fatalf
// panics so the helper's control flow ends the way runtime.Goexit
// would end it under a real *testing.T.
type recordingTB struct {
	message string
}

type fatalCalled struct{}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Fatalf(format string, args ...any) {
	r.message = fmt.Sprintf(format, args...)
	panic(fatalCalled{})
}

func expectFatal(t *testing.T, run func(tb *recordingTB)) string {
	t.Helper()
	recorder := &recordingTB{}
	func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				if _, ok := recovered.(fatalCalled); !ok {
					panic(recovered)
				}
			}
		}()
		run(recorder)
	}()
	if recorder.message == "" {
		t.Fatal("helper did not fail")
	}
	return recorder.message
}

func TestRequireReceive(t *testing.T) {
	ch := make(chan int, 1)
	ch <- 7
	if got := RequireReceive(t, ch, time.Second); got != 7 {
		t.Errorf("RequireReceive() = %d, want 7", got)
	}

	message := expectFatal(t, func(tb *recordingTB) {
		RequireReceive(tb, make(chan int), 10*time.Millisecond, "waiting for %s", "result")
	})
	if message != "timed out after 10ms: waiting for result" {
		t.Errorf("timeout message = %q", message)
	}

	closed := make(chan int)
	close(closed)
	message = expectFatal(t, func(tb *recordingTB) {
		RequireReceive(tb, closed, time.Second, "job")
	})
	if message != "channel closed without sending a value: job" {
		t.Errorf("closed message = %q", message)
	}
}

func TestRequireClosed(t *testing.T) {
	done := make(chan struct{})
	close(done)
	RequireClosed(t, done, time.Second)

	message := expectFatal(t, func(tb *recordingTB) {
		RequireClosed(tb, make(chan struct{}), 10*time.Millisecond)
	})
	if message != "timed out after 10ms waiting for channel close: (no message)" {
		t.Errorf("message = %q", message)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "file.txt")
	WriteFile(t, path, "content")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "content" {
		t.Errorf("content = %q", data)
	}
}

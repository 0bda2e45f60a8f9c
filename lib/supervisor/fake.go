// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"fmt"
	"sync"

	"github.com/wardenhq/warden/lib/apierror"
)

// Fake is an in-memory Supervisor for tests. Started processes go
// online immediately and get sequential ids.
type Fake struct {
	mu        sync.Mutex
	processes []Process
	nextID    int

	// Calls records every mutating command as "verb ref".
	Calls []string

	// Err, when set, is returned by every method.
	Err error
}

// NewFake returns a Fake preloaded with processes.
func NewFake(processes ...Process) *Fake {
	fake := &Fake{}
	for _, process := range processes {
		fake.processes = append(fake.processes, process)
		if process.ID >= fake.nextID {
			fake.nextID = process.ID + 1
		}
	}
	return fake
}

func (f *Fake) List(ctx context.Context) ([]Process, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return append([]Process{}, f.processes...), nil
}

func (f *Fake) Describe(ctx context.Context, ref string) (*Process, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	index := f.find(ref)
	if index < 0 {
		return nil, apierror.NotFound("%w", ErrProcessNotFound)
	}
	process := f.processes[index]
	return &process, nil
}

func (f *Fake) Start(ctx context.Context, spec StartSpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Calls = append(f.Calls, "start "+spec.Name)
	f.processes = append(f.processes, Process{
		Name: spec.Name,
		ID:   f.nextID,
		PID:  1000 + f.nextID,
		Env: Environment{
			Status:      StatusOnline,
			CombinedLog: spec.Logs.Combined,
			OutputLog:   spec.Logs.Output,
			ErrorLog:    spec.Logs.Error,
			WorkingDir:  spec.Dir,
			ScriptPath:  spec.Script,
		},
	})
	f.nextID++
	return nil
}

func (f *Fake) Stop(ctx context.Context, ref string) error {
	return f.mutate("stop", ref, func(index int) {
		f.processes[index].Env.Status = StatusStopped
		f.processes[index].PID = 0
	})
}

func (f *Fake) Restart(ctx context.Context, ref string) error {
	return f.mutate("restart", ref, func(index int) {
		f.processes[index].Env.Status = StatusOnline
		f.processes[index].Env.Restarts++
	})
}

func (f *Fake) Delete(ctx context.Context, ref string) error {
	return f.mutate("delete", ref, func(index int) {
		f.processes = append(f.processes[:index], f.processes[index+1:]...)
	})
}

func (f *Fake) Flush(ctx context.Context, ref string) error {
	return f.mutate("flush", ref, func(int) {})
}

func (f *Fake) mutate(verb, ref string, apply func(index int)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Calls = append(f.Calls, fmt.Sprintf("%s %s", verb, ref))
	index := f.find(ref)
	if index < 0 {
		return apierror.NotFound("%w", ErrProcessNotFound)
	}
	apply(index)
	return nil
}

func (f *Fake) find(ref string) int {
	for i := range f.processes {
		if f.processes[i].Matches(ref) {
			return i
		}
	}
	return -1
}

var _ Supervisor = (*Fake)(nil)

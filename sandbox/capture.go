// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"bytes"
	"sync"
)

// cappedBuffer keeps the first limit bytes written and discards the
// rest while still reporting full writes, so a chatty tool never blocks
// on a full pipe.
type cappedBuffer struct {
	mu        sync.Mutex
	buffer    bytes.Buffer
	limit     int
	truncated bool
}

func newCappedBuffer(limit int) *cappedBuffer {
	return &cappedBuffer{limit: limit}
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	room := c.limit - c.buffer.Len()
	if room <= 0 {
		if len(p) > 0 {
			c.truncated = true
		}
		return len(p), nil
	}
	if len(p) > room {
		c.buffer.Write(p[:room])
		c.truncated = true
		return len(p), nil
	}
	c.buffer.Write(p)
	return len(p), nil
}

func (c *cappedBuffer) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffer.String()
}

func (c *cappedBuffer) Truncated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.truncated
}

// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package hwinfo reports a snapshot of the host the control plane runs
// on: identity, CPU count, memory and load. The system endpoint returns
// it next to the supervisor's process totals so an operator can tell a
// busy app from a busy machine.
//
// Probe never fails. Fields that cannot be read are left zero; a
// container without /proc access is still a valid host.
package hwinfo

// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is the CBOR encoding used for signed payloads.
//
// Session tokens sign the encoded bytes directly, so the encoding must
// be deterministic: the encoder uses Core Deterministic Encoding
// (RFC 8949 §4.2), giving identical bytes for identical values. The
// decoder ignores unknown fields so that older servers can still read
// tokens carrying newer claims.
//
// Consumers import this package rather than fxamacker/cbor directly.
package codec

// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"

	"github.com/tidwall/jsonc"
)

// legacyConfig mirrors the config.json written by the Node deployment.
// Pointer fields distinguish "absent" from zero so absent keys keep
// their defaults.
type legacyConfig struct {
	Port        *int  `json:"port"`
	CORSEnabled *bool `json:"corsEnabled"`
	CORSOptions *struct {
		Origin         *string  `json:"origin"`
		Methods        []string `json:"methods"`
		AllowedHeaders []string `json:"allowedHeaders"`
	} `json:"corsOptions"`
	Auth *struct {
		Enabled       *bool  `json:"enabled"`
		JWTExpiration string `json:"jwtExpiration"`
	} `json:"auth"`
	Git *struct {
		AllowedPrefixes []string `json:"allowedPrefixes"`
	} `json:"git"`
}

// mergeLegacy overlays a legacy JSON document onto c. Comments and
// trailing commas are tolerated.
func (c *Config) mergeLegacy(data []byte) error {
	var legacy legacyConfig
	if err := json.Unmarshal(jsonc.ToJSON(data), &legacy); err != nil {
		return err
	}

	if legacy.Port != nil {
		c.Port = *legacy.Port
	}
	if legacy.CORSEnabled != nil {
		c.CORS.Enabled = *legacy.CORSEnabled
	}
	if options := legacy.CORSOptions; options != nil {
		if options.Origin != nil {
			c.CORS.Origin = *options.Origin
		}
		if options.Methods != nil {
			c.CORS.Methods = options.Methods
		}
		if options.AllowedHeaders != nil {
			c.CORS.AllowedHeaders = options.AllowedHeaders
		}
	}
	if legacy.Auth != nil {
		if legacy.Auth.Enabled != nil {
			enabled := *legacy.Auth.Enabled
			c.Auth.Enabled = &enabled
		}
		if legacy.Auth.JWTExpiration != "" {
			c.Auth.TokenLifetime = legacy.Auth.JWTExpiration
		}
	}
	if legacy.Git != nil {
		c.Git.AllowedPrefixes = legacy.Git.AllowedPrefixes
	}
	return nil
}

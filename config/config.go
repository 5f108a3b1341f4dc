// Copyright 2026 The streamlet Authors
// This file is part of the streamlet library.
//
// The streamlet library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The streamlet library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the streamlet library. If not, see <http://www.gnu.org/licenses/>.

// Package config loads and validates the per-node TOML configuration
// file. Decoding is strict: a key the Config struct doesn't declare
// fails the load rather than being silently dropped.
package config

import (
	"bufio"
	"os"
	"reflect"
	"time"

	"github.com/naoina/toml"
	"github.com/pkg/errors"
)

// PeerConfig is one entry of the nodes table: the static peer roster
// every participant is configured with up front.
type PeerConfig struct {
	ID   uint32 `toml:"id"`
	Host string `toml:"ip"`
	Port uint16 `toml:"port"`
}

// Config is the root of the TOML document every node is launched with.
type Config struct {
	EpochDurationMS   int64        `toml:"epoch_duration_ms"`
	Seed              uint64       `toml:"seed"`
	StartTime         time.Time    `toml:"start_time"`
	ConfusionStart    uint64       `toml:"confusion_start"`
	ConfusionDuration uint64       `toml:"confusion_duration"`
	DedupWindow       int          `toml:"dedup_window,omitempty"`
	ReconnectEveryMS  int64        `toml:"reconnect_every_ms,omitempty"`
	Nodes             []PeerConfig `toml:"nodes"`
}

// EpochDuration is the typed accessor for EpochDurationMS.
func (c Config) EpochDuration() time.Duration {
	return time.Duration(c.EpochDurationMS) * time.Millisecond
}

// ReconnectEvery is the typed accessor for ReconnectEveryMS, defaulting
// to half an epoch when unset.
func (c Config) ReconnectEvery() time.Duration {
	if c.ReconnectEveryMS > 0 {
		return time.Duration(c.ReconnectEveryMS) * time.Millisecond
	}
	return c.EpochDuration() / 2
}

// tomlSettings keeps TOML keys matching the struct tags verbatim and
// rejects any key the Config struct doesn't declare, so a typo'd field
// fails at startup instead of being silently dropped.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
	MissingField: func(rt reflect.Type, field string) error {
		return errors.Errorf("config: unrecognized key %q for type %s", field, rt.String())
	},
}

// Load reads and validates the TOML file at path. Any error here is
// meant to be fatal at startup: a node must never run with a half-parsed
// or out-of-range configuration.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "config: open")
	}
	defer f.Close()

	var cfg Config
	if err := tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "config: decode "+path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config: validate")
	}
	return &cfg, nil
}

// Validate checks the invariants a node's consensus engine and peer link
// depend on holding before it ever calls Start.
func (c *Config) Validate() error {
	if c.EpochDurationMS <= 0 {
		return errors.New("epoch_duration_ms must be positive")
	}
	if len(c.Nodes) == 0 {
		return errors.New("nodes must not be empty")
	}
	if c.StartTime.IsZero() {
		return errors.New("start_time must be set")
	}
	seen := make(map[uint32]bool, len(c.Nodes))
	for _, n := range c.Nodes {
		if seen[n.ID] {
			return errors.Errorf("duplicate node id %d", n.ID)
		}
		seen[n.ID] = true
		if n.Host == "" {
			return errors.Errorf("node %d: ip must not be empty", n.ID)
		}
		if n.Port == 0 {
			return errors.Errorf("node %d: port must not be zero", n.ID)
		}
	}
	if c.ConfusionDuration > 0 && c.ConfusionStart == 0 {
		return errors.New("confusion_start must be set when confusion_duration is nonzero")
	}
	return nil
}

// PeerByID looks up one entry of the node roster.
func (c *Config) PeerByID(id uint32) (PeerConfig, bool) {
	for _, n := range c.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return PeerConfig{}, false
}

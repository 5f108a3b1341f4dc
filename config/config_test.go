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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validTOML = `
epoch_duration_ms = 2000
seed = 42
start_time = 2026-01-01T00:00:00Z
confusion_start = 10
confusion_duration = 5

[[nodes]]
id = 0
ip = "127.0.0.1"
port = 9000

[[nodes]]
id = 1
ip = "127.0.0.1"
port = 9001
`

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeTemp(t, validTOML))
	require.NoError(t, err)
	assert.Equal(t, uint64(42), cfg.Seed)
	assert.Len(t, cfg.Nodes, 2)
	assert.Equal(t, uint32(1), cfg.Nodes[1].ID)
}

func TestLoadRejectsUnknownField(t *testing.T) {
	_, err := Load(writeTemp(t, validTOML+"\nbogus_field = 1\n"))
	assert.Error(t, err)
}

func TestLoadRejectsMissingEpochDuration(t *testing.T) {
	_, err := Load(writeTemp(t, `
seed = 1
start_time = 2026-01-01T00:00:00Z
[[nodes]]
id = 0
ip = "127.0.0.1"
port = 9000
`))
	assert.Error(t, err)
}

func TestLoadRejectsDuplicateNodeID(t *testing.T) {
	_, err := Load(writeTemp(t, `
epoch_duration_ms = 1000
start_time = 2026-01-01T00:00:00Z
[[nodes]]
id = 0
ip = "127.0.0.1"
port = 9000
[[nodes]]
id = 0
ip = "127.0.0.1"
port = 9001
`))
	assert.Error(t, err)
}

func TestLoadRejectsConfusionDurationWithoutStart(t *testing.T) {
	_, err := Load(writeTemp(t, `
epoch_duration_ms = 1000
start_time = 2026-01-01T00:00:00Z
confusion_duration = 5
[[nodes]]
id = 0
ip = "127.0.0.1"
port = 9000
`))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

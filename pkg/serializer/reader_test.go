// Copyright (c) 2025, The calory-counter Authors.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package serializer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"records.json", FormatJSON},
		{"records.YAML", FormatYAML},
		{"records.yml", FormatYAML},
		{"records.txt", FormatTable},
		{"records.table", FormatTable},
		{"records.csv", FormatJSON},
		{"records", FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatFromPath(tt.path))
		})
	}
}

func TestNewReader(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"table", FormatTable, true},
		{"unknown", Format("xml"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewReader(tt.format, strings.NewReader("{}"))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, r.Close())
		})
	}
}

func TestReader_Deserialize(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		r, err := NewReader(FormatJSON, strings.NewReader(`{"name":"a","value":1}`))
		require.NoError(t, err)

		var got testConfig
		require.NoError(t, r.Deserialize(&got))
		assert.Equal(t, testConfig{Name: "a", Value: 1}, got)
	})

	t.Run("yaml", func(t *testing.T) {
		r, err := NewReader(FormatYAML, strings.NewReader("- name: a\n  value: 1\n- name: b\n  value: 2\n"))
		require.NoError(t, err)

		var got []testConfig
		require.NoError(t, r.Deserialize(&got))
		assert.Len(t, got, 2)
	})

	t.Run("malformed", func(t *testing.T) {
		r, err := NewReader(FormatJSON, strings.NewReader(`{"name":`))
		require.NoError(t, err)

		var got testConfig
		assert.Error(t, r.Deserialize(&got))
	})

	t.Run("nil reader", func(t *testing.T) {
		var r *Reader
		assert.Error(t, r.Deserialize(&testConfig{}))
		assert.NoError(t, r.Close())
	})

	t.Run("nil input", func(t *testing.T) {
		r, err := NewReader(FormatJSON, nil)
		require.NoError(t, err)
		assert.Error(t, r.Deserialize(&testConfig{}))
	})
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(dir, "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("name: a\nvalue: 7\n"), 0o600))

		got, err := FromFile[testConfig](path)
		require.NoError(t, err)
		assert.Equal(t, 7, got.Value)
	})

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(dir, "config.json")
		require.NoError(t, os.WriteFile(path, []byte(`[{"name":"a","value":1}]`), 0o600))

		got, err := FromFile[[]testConfig](path)
		require.NoError(t, err)
		assert.Len(t, *got, 1)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := FromFile[testConfig](filepath.Join(dir, "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("table extension", func(t *testing.T) {
		path := filepath.Join(dir, "config.txt")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

		_, err := FromFile[testConfig](path)
		assert.Error(t, err)
	})
}

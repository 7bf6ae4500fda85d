// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZap(t *testing.T) {
	t.Run("With_debug_level", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(DebugLevel, buffer)
		require.Equal(t, DebugLevel, logger.LogLevel())

		logger.Debug("test debug")
		require.NoError(t, logger.Flush())

		entry := decodeEntry(t, buffer.Bytes())
		require.Equal(t, "test debug", entry["msg"])
		require.Equal(t, DebugLevel.String(), entry["level"])
	})

	t.Run("With_info_level", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(InfoLevel, buffer)
		require.Equal(t, InfoLevel, logger.LogLevel())
		require.False(t, logger.Enabled(DebugLevel))

		logger.Debug("ignored")
		require.Zero(t, buffer.Len())

		logger.Infof("bucket %s started", "list")
		entry := decodeEntry(t, buffer.Bytes())
		require.Equal(t, "bucket list started", entry["msg"])
		require.Equal(t, InfoLevel.String(), entry["level"])
	})

	t.Run("With_warn_level", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(WarningLevel, buffer)
		require.Equal(t, WarningLevel, logger.LogLevel())

		logger.Info("ignored")
		require.Zero(t, buffer.Len())

		logger.Warnf("%d buckets", 3)
		entry := decodeEntry(t, buffer.Bytes())
		require.Equal(t, "3 buckets", entry["msg"])
		require.Equal(t, WarningLevel.String(), entry["level"])
	})

	t.Run("With_error_level", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(ErrorLevel, buffer)
		require.Equal(t, ErrorLevel, logger.LogLevel())

		logger.Error("crashed")
		entry := decodeEntry(t, buffer.Bytes())
		require.Equal(t, "crashed", entry["msg"])
		require.Contains(t, entry, "stacktrace")
	})

	t.Run("With_panic", func(t *testing.T) {
		logger := NewZap(InfoLevel, new(bytes.Buffer))
		assert.Panics(t, func() {
			logger.Panicf("panic %d", 1)
		})
	})
}

func TestZapWith(t *testing.T) {
	t.Run("With_structured_fields", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(InfoLevel, buffer)
		logger.With("bucket", "list", "id", "abc").Info("started")

		entry := decodeEntry(t, buffer.Bytes())
		require.Equal(t, "list", entry["bucket"])
		require.Equal(t, "abc", entry["id"])
	})

	t.Run("With_no_fields_returns_same_logger", func(t *testing.T) {
		logger := NewZap(InfoLevel, new(bytes.Buffer))
		require.Equal(t, Logger(logger), logger.With())
		require.Equal(t, Logger(logger), logger.With(42, "ignored"))
	})

	t.Run("With_orphan_value", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(InfoLevel, buffer)
		logger.With("a", 1, "orphan").Info("msg")

		entry := decodeEntry(t, buffer.Bytes())
		require.Contains(t, entry, "a")
		require.Equal(t, "orphan", entry["_"])
	})
}

func TestZapFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buckets.log")
	file, err := os.Create(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = file.Close() })

	logger := NewZap(InfoLevel, file)
	require.Len(t, logger.LogOutput(), 1)
	require.NotNil(t, logger.StdLogger())

	logger.Info("buffered")
	require.NoError(t, logger.Flush())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "buffered", decodeEntry(t, content)["msg"])
}

func TestLevelString(t *testing.T) {
	require.Equal(t, "info", InfoLevel.String())
	require.Equal(t, "debug", DebugLevel.String())
	require.Equal(t, "", InvalidLevel.String())
	require.Equal(t, "", Level(-1).String())
}

func decodeEntry(t *testing.T, content []byte) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(content), []byte("\n"))
	require.NotEmpty(t, lines)
	entry := make(map[string]any)
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

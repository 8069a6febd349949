// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
)

func assertLogged(t *testing.T, buf *bytes.Buffer, message string, want bool) {
	t.Helper()
	if got := bytes.Contains(buf.Bytes(), []byte(message)); got != want {
		if want {
			t.Errorf("expected %q to be logged, got: %q", message, buf.String())
			return
		}
		t.Errorf("did not expect %q to be logged, got: %q", message, buf.String())
	}
}

func TestNew(t *testing.T) {
	t.Run("new logger honors the given level", func(t *testing.T) {
		l := New(slog.LevelWarn)
		if l == nil {
			t.Fatal("expected logger to be non-nil")
		}
		if l.Enabled(t.Context(), slog.LevelInfo) {
			t.Error("expected info level to be disabled on a warn-level logger")
		}
		if !l.Enabled(t.Context(), slog.LevelError) {
			t.Error("expected error level to be enabled on a warn-level logger")
		}
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("logger logs successfully with different levels", func(t *testing.T) {
		tests := []struct {
			name        string
			level       slog.Level
			shouldDebug bool
			shouldInfo  bool
			shouldWarn  bool
			shouldError bool
		}{
			{"DEBUG", slog.LevelDebug, true, true, true, true},
			{"INFO", slog.LevelInfo, false, true, true, true},
			{"WARN", slog.LevelWarn, false, false, true, true},
			{"ERROR", slog.LevelError, false, false, false, true},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				buf := bytes.NewBuffer(nil)
				l := NewLogger(tc.level, buf)
				l.Debug("debug")
				l.Info("info")
				l.Warn("warn")
				l.Error("error")

				assertLogged(t, buf, "debug", tc.shouldDebug)
				assertLogged(t, buf, "info", tc.shouldInfo)
				assertLogged(t, buf, "warn", tc.shouldWarn)
				assertLogged(t, buf, "error", tc.shouldError)
			})
		}
	})
}

func TestErr(t *testing.T) {
	t.Run("error attributes should be logged", func(t *testing.T) {
		buf := bytes.NewBuffer(nil)
		l := NewLogger(slog.LevelDebug, buf)
		want := "intentionally failing"
		l.Error("this is a test", Err(errors.New(want)))

		assertLogged(t, buf, `error="`+want+`"`, true)
	})
}

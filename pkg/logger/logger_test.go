package logger

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"igunfollow/pkg/config"
)

func newBufferLogger(buf *bytes.Buffer) *zerologLogger {
	zlog := zerolog.New(buf).With().Timestamp().Logger().Level(zerolog.DebugLevel)
	return &zerologLogger{
		logger: &zlog,
		fields: make(map[string]interface{}),
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{
			name:    "console only",
			cfg:     &config.LoggingConfig{Level: "info"},
			wantErr: false,
		},
		{
			name:    "with log file",
			cfg:     &config.LoggingConfig{Level: "debug", File: filepath.Join(t.TempDir(), "logs", "bot.log")},
			wantErr: false,
		},
		{
			name:    "invalid level",
			cfg:     &config.LoggingConfig{Level: "loud"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && l == nil {
				t.Error("New() returned nil logger")
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"warn", zerolog.WarnLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"fatal", zerolog.FatalLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"panic", zerolog.InfoLevel, true},
		{"", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseLogLevel() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if level != tt.expected {
				t.Errorf("parseLogLevel() = %v, want %v", level, tt.expected)
			}
		})
	}
}

func TestLoggerMethods(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	cases := map[string]func(string){
		"debug message": l.Debug,
		"info message":  l.Info,
		"warn message":  l.Warn,
		"error message": l.Error,
	}

	for msg, fn := range cases {
		buf.Reset()
		fn(msg)
		if !strings.Contains(buf.String(), msg) {
			t.Errorf("%q not found in output %q", msg, buf.String())
		}
	}
}

func TestFieldChaining(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	l.WithField("run_id", "abc").
		WithFields(map[string]interface{}{
			"username": "someone",
			"index":    3,
		}).
		InfoWithFields("unfollowed", map[string]interface{}{"elapsed": 2 * time.Second})

	output := buf.String()
	for _, want := range []string{`"run_id":"abc"`, `"username":"someone"`, `"index":3`, `"elapsed":2000`} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in output %s", want, output)
		}
	}
}

func TestWithFieldDoesNotLeakToParent(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	_ = l.WithField("child", true)
	l.Info("parent")

	if strings.Contains(buf.String(), "child") {
		t.Errorf("parent logger picked up child field: %s", buf.String())
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	if l.WithError(nil) != Logger(l) {
		t.Error("WithError(nil) should return the same logger")
	}

	l.WithError(errors.New("session expired")).Error("logout failed")

	output := buf.String()
	if !strings.Contains(output, "logout failed") || !strings.Contains(output, "session expired") {
		t.Errorf("expected message and error in output, got %s", output)
	}
}

func TestGlobalLogger(t *testing.T) {
	if err := Initialize(&config.LoggingConfig{Level: "debug"}); err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}
	if GetLogger() == nil {
		t.Fatal("GetLogger() returned nil")
	}

	test := NewTestLogger()
	SetLogger(test)
	defer SetLogger(nil)

	Info("global info")
	ForRun("run-1").Warn("scoped warning")
	WithError(errors.New("boom")).Error("global error")

	if !test.HasMessage("global info") {
		t.Error("expected global info message to be captured")
	}

	warns := test.GetMessagesByLevel("WARN")
	if len(warns) != 1 || warns[0].Fields["run_id"] != "run-1" {
		t.Errorf("expected run-scoped warning, got %+v", warns)
	}
	if !test.HasError() {
		t.Error("expected an error message")
	}
}

func TestHelpers(t *testing.T) {
	test := NewTestLogger()

	LogRequest(test, "GET", "/api/v1/friendships/1/followers/", 200, 40*time.Millisecond)
	LogRequest(test, "POST", "/api/v1/friendships/destroy/2/", 429, time.Millisecond)
	LogRequest(test, "GET", "/api/v1/friendships/1/following/", 502, time.Millisecond)
	LogUnfollow(test, "someone", "2", 1, 3, nil)
	LogUnfollow(test, "other", "3", 2, 3, errors.New("rejected"))
	LogRunSummary(test, 10, 8, 3, 2, 1, time.Minute)

	if got := len(test.GetMessagesByLevel("DEBUG")); got != 1 {
		t.Errorf("expected 1 debug message, got %d", got)
	}
	if got := len(test.GetMessagesByLevel("WARN")); got != 2 {
		t.Errorf("expected 2 warn messages, got %d", got)
	}
	if got := len(test.GetMessagesByLevel("ERROR")); got != 1 {
		t.Errorf("expected 1 error message, got %d", got)
	}

	var failed *LogMessage
	for _, msg := range test.GetMessages() {
		if msg.Message == "Unfollow failed" {
			m := msg
			failed = &m
		}
	}
	if failed == nil || failed.Error == nil || failed.Fields["progress"] != "2/3" {
		t.Errorf("unexpected failed unfollow entry: %+v", failed)
	}
	if !test.HasMessage("Unfollow run finished") {
		t.Error("expected run summary")
	}
}

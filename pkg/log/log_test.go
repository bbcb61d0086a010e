// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionalTime(t *testing.T) {
	at := time.Date(2026, 6, 1, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		input    *time.Time
		expected slog.Value
	}{
		{
			name:     "nil pointer returns nil value",
			input:    nil,
			expected: slog.AnyValue(nil),
		},
		{
			name:     "timestamp is logged as time",
			input:    &at,
			expected: slog.TimeValue(at),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := OptionalTime(tt.input)
			assert.True(t, result.Equal(tt.expected), "OptionalTime(%v) = %v, want %v", tt.input, result, tt.expected)
		})
	}
}

func TestAppendCtx(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(contextHandler{slog.NewJSONHandler(&buf, nil)})

	ctx := AppendCtx(context.Background(), slog.String("committee_uid", "c-1"))
	ctx = AppendCtx(ctx, PriorityCritical())
	logger.InfoContext(ctx, "committee confirmed")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "c-1", record["committee_uid"])
	assert.Equal(t, "critical", record["priority"])

	//nolint:staticcheck // a nil parent is accepted
	assert.NotNil(t, AppendCtx(nil, slog.String("k", "v")))
}

func TestAppendCtx_SiblingsDoNotShareAttributes(t *testing.T) {
	base := AppendCtx(context.Background(), slog.String("committee_uid", "c-1"))
	first := AppendCtx(base, slog.String("member_uid", "m-1"))
	second := AppendCtx(base, slog.String("member_uid", "m-2"))

	assert.Equal(t, "m-1", first.Value(slogFields).([]slog.Attr)[1].Value.String())
	assert.Equal(t, "m-2", second.Value(slogFields).([]slog.Attr)[1].Value.String())
	assert.Len(t, base.Value(slogFields).([]slog.Attr), 1)
}

func TestNewHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx := AppendCtx(context.Background(), slog.String("committee_uid", "c-1"))
	logger.DebugContext(ctx, "dropped below the level")
	logger.With("component", "reply-consumer").InfoContext(ctx, "reply applied")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "reply applied", record["msg"])
	assert.Equal(t, "reply-consumer", record["component"])
	assert.Equal(t, "c-1", record["committee_uid"], "derived loggers keep the context attributes")
}

func TestHandlerOptionsFromEnv(t *testing.T) {
	tests := []struct {
		level     string
		addSource string
		wantLevel slog.Level
		wantSrc   bool
	}{
		{level: "", wantLevel: slog.LevelDebug},
		{level: "info", wantLevel: slog.LevelInfo},
		{level: " WARN ", wantLevel: slog.LevelWarn},
		{level: "error", addSource: "true", wantLevel: slog.LevelError, wantSrc: true},
		{level: "verbose", addSource: "yes", wantLevel: slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.addSource, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.level)
			t.Setenv("LOG_ADD_SOURCE", tt.addSource)

			opts := HandlerOptionsFromEnv()
			assert.Equal(t, tt.wantLevel, opts.Level)
			assert.Equal(t, tt.wantSrc, opts.AddSource)
		})
	}
}

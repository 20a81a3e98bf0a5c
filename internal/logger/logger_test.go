package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{" WARN ", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	scoped := zap.New(core)

	ctx := ToContext(context.Background(), scoped)
	From(ctx).Info("scoped", Keyspace("ks"))

	entries := logs.FilterMessage("scoped").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "ks", entries[0].ContextMap()["keyspace"])
	}

	assert.NotNil(t, From(context.Background()))
}

func TestSetReplacesProcessLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Set(zap.New(core))
	t.Cleanup(func() { Set(zap.NewNop()) })

	Named("election").Debug("hello", Operation("REPAIR"))

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "election", entries[0].LoggerName)
		assert.Equal(t, "REPAIR", entries[0].ContextMap()["operation"])
	}
}

func TestBuild(t *testing.T) {
	assert.NotNil(t, build(Config{Env: "prod", Level: "debug"}))
	assert.NotNil(t, build(Config{}))
}

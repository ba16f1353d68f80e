package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	tests := []struct {
		env     string
		level   string
		wantErr bool
		debug   bool
	}{
		{env: "prod"},
		{env: "local", debug: true},
		{env: "docker", level: "warn"},
		{env: "prod", level: "debug", debug: true},
		{env: "test"},
		{env: "staging", wantErr: true},
		{env: "prod", level: "loud", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.env+"/"+tc.level, func(t *testing.T) {
			l, err := New(tc.env, tc.level, "solrsync")
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil {
				return
			}
			if got := l.Core().Enabled(zapcore.DebugLevel); got != tc.debug {
				t.Errorf("debug enabled = %v, want %v", got, tc.debug)
			}
		})
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("expected nop logger")
	}

	core, logs := observer.New(zapcore.InfoLevel)
	ctx := ContextWithLogger(context.Background(), zap.New(core))

	ForRecord(ctx, "Book", "7").Info("stored")
	ForType(ctx, "Author").Info("rebuilt")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("entries = %d", len(entries))
	}
	if f := entries[0].ContextMap(); f["type"] != "Book" || f["id"] != "7" {
		t.Errorf("record fields = %v", f)
	}
	if f := entries[1].ContextMap(); f["type"] != "Author" || len(f) != 1 {
		t.Errorf("type fields = %v", f)
	}
}

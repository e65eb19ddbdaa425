package tracing

import (
	"context"
	"errors"
	"testing"
)

func TestInit_Disabled(t *testing.T) {
	p, err := Init(context.Background(), Config{Enabled: false, ServiceName: "test"})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if p.Tracer() == nil {
		t.Fatal("expected a no-op tracer, got nil")
	}

	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() on no-op provider should be nil, got %v", err)
	}
}

func TestGet_DefaultsBeforeInit(t *testing.T) {
	globalProvider = nil

	p := Get()
	if p == nil || p.Tracer() == nil {
		t.Fatal("Get() should return a usable default provider")
	}
}

func TestStartSpanAndSetError(t *testing.T) {
	globalProvider = nil

	ctx, span := StartSpan(context.Background(), "flush")
	defer span.End()

	SetAttributes(ctx, FlushAttributes(10, "ingest.example.com")...)
	SetError(ctx, errors.New("boom"))
}

func TestFlushAttributes(t *testing.T) {
	attrs := FlushAttributes(25, "ingest.example.com")
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
}

func TestSubmitOutcomeAttributes(t *testing.T) {
	attrs := SubmitOutcomeAttributes("success", 200, false)
	if len(attrs) != 3 {
		t.Fatalf("expected 3 attributes, got %d", len(attrs))
	}
}

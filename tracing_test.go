package subst

import (
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestResolveRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	s := mustSubstitutor(t, "{", "}", WithTracer(provider.Tracer("test")))
	lookup := NewMapLookup(map[string]string{"A": "{B}", "B": "b", "Loop": "{Loop}"})

	mustResolve(t, s, lookup, "A")
	_, _, _ = s.Resolve(lookup, "Loop")
	_, _ = s.Expand(lookup, "{B}")

	spans := recorder.Ended()
	if len(spans) != 3 {
		t.Fatalf("expected one span per top-level call, got %d", len(spans))
	}

	resolved := spans[0]
	if resolved.Name() != "subst.resolve" {
		t.Fatalf("unexpected span name %q", resolved.Name())
	}
	if key, _ := spanAttr(resolved, "subst.key"); key.AsString() != "A" {
		t.Fatalf("expected key attribute, got %v", key)
	}
	if found, _ := spanAttr(resolved, "subst.found"); !found.AsBool() {
		t.Fatalf("expected found attribute")
	}
	if id, present := spanAttr(resolved, "subst.resolution_id"); !present || id.AsString() == "" {
		t.Fatalf("expected resolution id attribute")
	}

	failed := spans[1]
	if failed.Status().Code != codes.Error {
		t.Fatalf("expected error status, got %v", failed.Status())
	}
	if len(failed.Events()) == 0 {
		t.Fatalf("expected recorded error event")
	}

	if spans[2].Name() != "subst.expand" {
		t.Fatalf("unexpected span name %q", spans[2].Name())
	}
}

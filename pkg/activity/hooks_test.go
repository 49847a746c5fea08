package activity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNormalizeEventTrimsAndCopiesMetadata(t *testing.T) {
	meta := map[string]any{MetadataDefault: "8080"}
	evt := Event{
		Verb:       " fallback.learned ",
		Actor:      Actor{ID: " deploy-bot ", TenantID: " acme "},
		ObjectType: " config_key ",
		ObjectID:   " Http.Port ",
		Channel:    " config ",
		Metadata:   meta,
	}

	got := NormalizeEvent(evt)

	if got.Verb != VerbFallbackLearned || got.ObjectType != ObjectTypeKey || got.ObjectID != "Http.Port" || got.Channel != "config" {
		t.Fatalf("unexpected normalized fields: %+v", got)
	}
	if got.Actor != (Actor{ID: "deploy-bot", TenantID: "acme"}) {
		t.Fatalf("unexpected actor: %+v", got.Actor)
	}
	if got.OccurredAt.IsZero() {
		t.Fatalf("expected OccurredAt to be stamped")
	}
	got.Metadata[MetadataDefault] = "changed"
	if meta[MetadataDefault] != "8080" {
		t.Fatalf("expected original metadata untouched: %+v", meta)
	}
}

func TestNormalizeEventKeepsTimestamp(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := NormalizeEvent(Event{OccurredAt: at}); got.OccurredAt != at {
		t.Fatalf("expected %v, got %v", at, got.OccurredAt)
	}
}

func TestActorRoundTripsThroughContext(t *testing.T) {
	if actor := ActorFromContext(context.Background()); !actor.IsZero() {
		t.Fatalf("expected zero actor, got %+v", actor)
	}
	if actor := ActorFromContext(nil); !actor.IsZero() {
		t.Fatalf("expected zero actor for nil context, got %+v", actor)
	}

	ctx := WithActor(nil, Actor{UserID: " alice "})
	if actor := ActorFromContext(ctx); actor != (Actor{UserID: "alice"}) {
		t.Fatalf("expected trimmed actor, got %+v", actor)
	}
}

func TestHooksNotifyDropsUndeliverable(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{capture}

	for _, evt := range []Event{
		{},
		{Verb: VerbFallbackLearned, ObjectType: ObjectTypeKey},
		{Verb: " ", ObjectType: ObjectTypeKey, ObjectID: "A"},
	} {
		if err := hooks.Notify(context.Background(), evt); err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events captured, got %d", len(capture.Events))
	}
}

func TestHooksNotifyFanOutAndJoinErrors(t *testing.T) {
	capture := &CaptureHook{}
	first := errors.New("sink down")
	second := errors.New("queue full")
	var ctxSeen bool
	hooks := Hooks{
		HookFunc(func(ctx context.Context, _ Event) error {
			ctxSeen = ctx != nil
			return nil
		}),
		capture,
		HookFunc(func(context.Context, Event) error { return first }),
		nil,
		HookFunc(func(context.Context, Event) error { return second }),
	}

	err := hooks.Notify(nil, Event{Verb: VerbResolutionFailed, ObjectType: ObjectTypeKey, ObjectID: "A"})
	if !errors.Is(err, first) || !errors.Is(err, second) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if !ctxSeen {
		t.Fatalf("expected a non-nil context")
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected event captured once, got %d", len(capture.Events))
	}
}

func TestEmitterDisabledAndEnabled(t *testing.T) {
	capture := &CaptureHook{}
	event := Event{Verb: VerbFallbackLearned, ObjectType: ObjectTypeKey, ObjectID: "A"}

	disabled := NewEmitter(Hooks{capture}, Config{Enabled: false})
	if disabled.Enabled() {
		t.Fatalf("expected emitter to be disabled")
	}
	if err := disabled.Emit(context.Background(), event); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events captured when disabled")
	}
	if NewEmitter(nil, Config{Enabled: true}).Enabled() {
		t.Fatalf("expected emitter without hooks to be disabled")
	}

	enabled := NewEmitter(Hooks{capture}, Config{Enabled: true})
	if err := enabled.Emit(context.Background(), event); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(capture.Events) != 1 || capture.Events[0].Channel != DefaultChannel {
		t.Fatalf("expected default channel applied, got %+v", capture.Events)
	}
}

func TestEmitterPreservesExplicitChannel(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true, Channel: "settings"})

	if err := emitter.Emit(context.Background(), Event{Verb: VerbResolutionFailed, ObjectType: ObjectTypeKey, ObjectID: "A", Channel: "audit"}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if err := emitter.Emit(context.Background(), Event{Verb: VerbResolutionFailed, ObjectType: ObjectTypeKey, ObjectID: "B"}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if capture.Events[0].Channel != "audit" || capture.Events[1].Channel != "settings" {
		t.Fatalf("unexpected channels %q, %q", capture.Events[0].Channel, capture.Events[1].Channel)
	}
}

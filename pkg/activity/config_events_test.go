package activity

import (
	"context"
	"errors"
	"testing"
)

func TestBuildFallbackLearnedEvent(t *testing.T) {
	input := ResolutionEventInput{
		Actor:        Actor{ID: " deploy-bot "},
		Key:          " Db.Port ",
		ResolutionID: "res-1",
	}

	event := BuildFallbackLearnedEvent(input, "5432", true)

	if event.Verb != VerbFallbackLearned {
		t.Fatalf("expected verb %s got %s", VerbFallbackLearned, event.Verb)
	}
	if event.ObjectType != ObjectTypeKey || event.ObjectID != "Db.Port" {
		t.Fatalf("unexpected object fields: %+v", event)
	}
	if event.Actor.ID != "deploy-bot" {
		t.Fatalf("expected trimmed actor, got %q", event.Actor.ID)
	}
	if event.Metadata[MetadataDefault] != "5432" || event.Metadata[MetadataWriteBack] != true {
		t.Fatalf("expected fallback metadata, got %+v", event.Metadata)
	}
	if event.Metadata[MetadataResolutionID] != "res-1" {
		t.Fatalf("expected resolution id, got %+v", event.Metadata)
	}
}

func TestBuildResolutionFailedEventWithoutKeyTargetsResolution(t *testing.T) {
	event := BuildResolutionFailedEvent(ResolutionEventInput{ResolutionID: "res-2"}, errors.New("boom"))

	if event.Verb != VerbResolutionFailed {
		t.Fatalf("expected verb %s got %s", VerbResolutionFailed, event.Verb)
	}
	if event.ObjectType != ObjectTypeValue || event.ObjectID != "res-2" {
		t.Fatalf("unexpected object fields: %+v", event)
	}
	if event.Metadata[MetadataError] != "boom" {
		t.Fatalf("expected error metadata, got %v", event.Metadata[MetadataError])
	}
}

func TestBuildResolutionFailedEventFallbackObjectID(t *testing.T) {
	event := BuildResolutionFailedEvent(ResolutionEventInput{}, nil)
	if event.ObjectID != ObjectTypeValue {
		t.Fatalf("expected fallback object ID %q, got %q", ObjectTypeValue, event.ObjectID)
	}
	if len(event.Metadata) != 0 {
		t.Fatalf("expected no metadata, got %+v", event.Metadata)
	}
}

func TestResolutionEventsWorkWithHooks(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true})

	event := BuildFallbackLearnedEvent(ResolutionEventInput{Key: "App.Name"}, "demo", false)
	if err := emitter.Emit(context.Background(), event); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected capture to record event, got %d", len(capture.Events))
	}
	if capture.Events[0].Channel != DefaultChannel {
		t.Fatalf("expected default channel %q, got %q", DefaultChannel, capture.Events[0].Channel)
	}
}

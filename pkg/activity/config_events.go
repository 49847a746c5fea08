package activity

import (
	"strings"
)

const (
	// VerbFallbackLearned marks an inline fallback default being recorded.
	VerbFallbackLearned = "fallback.learned"
	// VerbResolutionFailed marks a resolution call that returned an error.
	VerbResolutionFailed = "resolution.failed"

	// ObjectTypeKey is used for events about a configuration key.
	ObjectTypeKey = "config_key"
	// ObjectTypeValue is used for events about an inline value that has no key.
	ObjectTypeValue = "config_value"
)

// Metadata keys set by the event builders.
const (
	MetadataResolutionID = "resolution_id"
	MetadataDefault      = "default"
	MetadataWriteBack    = "write_back"
	MetadataError        = "error"
)

// ResolutionEventInput describes the common fields for resolution events.
type ResolutionEventInput struct {
	Actor        Actor
	Key          string
	ResolutionID string
}

// BuildFallbackLearnedEvent constructs the event emitted when literal becomes
// the default of input.Key. writeBack reports whether the default was stored
// in the lookup itself.
func BuildFallbackLearnedEvent(input ResolutionEventInput, literal string, writeBack bool) Event {
	event := buildResolutionEvent(VerbFallbackLearned, input)
	event.Metadata[MetadataDefault] = literal
	event.Metadata[MetadataWriteBack] = writeBack
	return event
}

// BuildResolutionFailedEvent constructs the event emitted when resolving
// input.Key fails. Without a key the event targets the resolution itself.
func BuildResolutionFailedEvent(input ResolutionEventInput, err error) Event {
	event := buildResolutionEvent(VerbResolutionFailed, input)
	if err != nil {
		event.Metadata[MetadataError] = err.Error()
	}
	return event
}

func buildResolutionEvent(verb string, input ResolutionEventInput) Event {
	metadata := map[string]any{}
	resolutionID := strings.TrimSpace(input.ResolutionID)
	if resolutionID != "" {
		metadata[MetadataResolutionID] = resolutionID
	}

	objectType := ObjectTypeKey
	objectID := strings.TrimSpace(input.Key)
	if objectID == "" {
		objectType = ObjectTypeValue
		objectID = resolutionID
	}
	if objectID == "" {
		objectID = objectType
	}

	return Event{
		Verb:       verb,
		Actor:      input.Actor.normalize(),
		ObjectType: objectType,
		ObjectID:   objectID,
		Metadata:   metadata,
	}
}

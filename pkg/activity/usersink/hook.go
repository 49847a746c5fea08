package usersink

import (
	"context"

	"github.com/goliatone/go-subst/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook forwards resolution events to a go-users ActivitySink.
type Hook struct {
	Sink usertypes.ActivitySink
}

// Notify maps the event with Record and logs it on the sink.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}
	event = activity.NormalizeEvent(event)
	if !event.Deliverable() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return h.Sink.Log(ctx, Record(event))
}

// Record converts a normalized event into an ActivityRecord.
//
// Actor identities that are UUIDs populate the record's ID fields; any other
// identity is kept in Data under actor_id, user_id or tenant_id so it is not
// lost. Fallback events carry key, default and write_back; failures carry
// key and error. Both carry resolution_id when known.
func Record(event activity.Event) usertypes.ActivityRecord {
	data := recordData(event)
	return usertypes.ActivityRecord{
		ActorID:    identity(data, "actor_id", event.Actor.ID),
		UserID:     identity(data, "user_id", event.Actor.UserID),
		TenantID:   identity(data, "tenant_id", event.Actor.TenantID),
		Verb:       event.Verb,
		ObjectType: event.ObjectType,
		ObjectID:   event.ObjectID,
		Channel:    event.Channel,
		Data:       data,
		OccurredAt: event.OccurredAt,
	}
}

func recordData(event activity.Event) map[string]any {
	data := map[string]any{}
	if event.ObjectType == activity.ObjectTypeKey {
		data["key"] = event.ObjectID
	}
	if id, ok := event.Metadata[activity.MetadataResolutionID].(string); ok && id != "" {
		data[activity.MetadataResolutionID] = id
	}

	switch event.Verb {
	case activity.VerbFallbackLearned:
		if literal, ok := event.Metadata[activity.MetadataDefault].(string); ok {
			data[activity.MetadataDefault] = literal
		}
		writeBack, _ := event.Metadata[activity.MetadataWriteBack].(bool)
		data[activity.MetadataWriteBack] = writeBack
	case activity.VerbResolutionFailed:
		if msg, ok := event.Metadata[activity.MetadataError].(string); ok {
			data[activity.MetadataError] = msg
		}
	default:
		for k, v := range event.Metadata {
			if _, set := data[k]; !set {
				data[k] = v
			}
		}
	}
	return data
}

func identity(data map[string]any, field, value string) uuid.UUID {
	if value == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		data[field] = value
		return uuid.Nil
	}
	return id
}

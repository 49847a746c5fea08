package usersink_test

import (
	"context"
	"errors"
	"testing"
	"time"

	subst "github.com/goliatone/go-subst"
	"github.com/goliatone/go-subst/pkg/activity"
	"github.com/goliatone/go-subst/pkg/activity/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestRecordMapsFallbackLearned(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	actorID := uuid.New()
	tenantID := uuid.New()

	event := activity.BuildFallbackLearnedEvent(activity.ResolutionEventInput{
		Actor:        activity.Actor{ID: actorID.String(), TenantID: tenantID.String()},
		Key:          "Database.Password",
		ResolutionID: "res-1",
	}, "hunter2", true)
	event.Channel = "config"
	event.OccurredAt = now

	record := usersink.Record(event)

	if record.ActorID != actorID || record.TenantID != tenantID || record.UserID != uuid.Nil {
		t.Fatalf("unexpected identities: %+v", record)
	}
	if record.Verb != subst.VerbFallbackLearned || record.ObjectType != activity.ObjectTypeKey || record.ObjectID != "Database.Password" {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.Channel != "config" || record.OccurredAt != now {
		t.Fatalf("unexpected channel or time: %+v", record)
	}
	want := map[string]any{
		"key":           "Database.Password",
		"resolution_id": "res-1",
		"default":       "hunter2",
		"write_back":    true,
	}
	if len(record.Data) != len(want) {
		t.Fatalf("expected data %v, got %v", want, record.Data)
	}
	for k, v := range want {
		if record.Data[k] != v {
			t.Fatalf("expected data[%s]=%v, got %v", k, v, record.Data[k])
		}
	}
}

func TestRecordMapsResolutionFailed(t *testing.T) {
	event := activity.BuildResolutionFailedEvent(activity.ResolutionEventInput{
		Key:          "App.Url",
		ResolutionID: "res-2",
	}, errors.New("undefined variable {Host}"))

	record := usersink.Record(event)

	if record.Data["error"] != "undefined variable {Host}" || record.Data["key"] != "App.Url" {
		t.Fatalf("unexpected data %v", record.Data)
	}
	if _, ok := record.Data["default"]; ok {
		t.Fatalf("failure records carry no default: %v", record.Data)
	}
}

func TestRecordKeepsNonUUIDIdentities(t *testing.T) {
	event := activity.BuildResolutionFailedEvent(activity.ResolutionEventInput{
		Actor: activity.Actor{ID: "deploy-bot", UserID: "alice"},
	}, nil)

	record := usersink.Record(event)

	if record.ActorID != uuid.Nil || record.UserID != uuid.Nil {
		t.Fatalf("expected nil ids for non uuid identities, got %+v", record)
	}
	if record.Data["actor_id"] != "deploy-bot" || record.Data["user_id"] != "alice" {
		t.Fatalf("expected identities kept in data, got %v", record.Data)
	}
	if _, ok := record.Data["tenant_id"]; ok {
		t.Fatalf("expected no tenant entry, got %v", record.Data)
	}
	if _, ok := record.Data["key"]; ok {
		t.Fatalf("inline failures have no key, got %v", record.Data)
	}
}

func TestHookNotifySkipsUndeliverable(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	if err := hook.Notify(context.Background(), activity.Event{Verb: subst.VerbFallbackLearned}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 0 {
		t.Fatalf("expected no records, got %d", len(sink.records))
	}
	if err := (usersink.Hook{}).Notify(context.Background(), activity.Event{}); err != nil {
		t.Fatalf("expected nil sink to be a no-op, got %v", err)
	}
}

func TestSubstitutorFallbackReachesSink(t *testing.T) {
	sink := &recordingSink{}
	s, err := subst.NewDefault(
		subst.WithFallbackDelimiter(":"),
		subst.WithActivityHooks(activity.Hooks{usersink.Hook{Sink: sink}}),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	userID := uuid.New()
	ctx := subst.WithActor(context.Background(), activity.Actor{UserID: userID.String()})
	lookup := subst.NewMapLookup(map[string]string{"Listen": "{Http.Port:8080}"})

	value, found, err := s.ResolveContext(ctx, lookup, "Listen")
	if err != nil || !found || value != "8080" {
		t.Fatalf("expected 8080, got %q found=%v err=%v", value, found, err)
	}

	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.Verb != subst.VerbFallbackLearned || record.ObjectID != "Http.Port" {
		t.Fatalf("unexpected record %+v", record)
	}
	if record.UserID != userID {
		t.Fatalf("expected user %s from context, got %s", userID, record.UserID)
	}
	if record.Channel != activity.DefaultChannel || record.OccurredAt.IsZero() {
		t.Fatalf("expected emitter defaults, got %+v", record)
	}
	if record.Data["default"] != "8080" || record.Data["write_back"] != false {
		t.Fatalf("unexpected data %v", record.Data)
	}
	if id, _ := record.Data["resolution_id"].(string); id == "" {
		t.Fatalf("expected resolution id, got %v", record.Data)
	}
}

func TestHookNotifyReturnsSinkError(t *testing.T) {
	sink := &recordingSink{err: errors.New("sink down")}
	hook := usersink.Hook{Sink: sink}

	err := hook.Notify(context.Background(), activity.BuildResolutionFailedEvent(activity.ResolutionEventInput{Key: "A"}, nil))
	if err == nil || err.Error() != "sink down" {
		t.Fatalf("expected sink error, got %v", err)
	}
}

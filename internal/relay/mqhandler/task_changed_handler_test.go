package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"

	mqcontracts "taskmanagerx/internal/contracts/mq"
	"taskmanagerx/internal/model"
	"taskmanagerx/internal/relay"
)

type fakeBroadcaster struct {
	err     error
	title   string
	message string
	calls   int
}

func (f *fakeBroadcaster) Broadcast(_ context.Context, title, message string) ([]relay.DeliveryResult, error) {
	f.calls++
	f.title = title
	f.message = message
	return nil, f.err
}

func TestNotificationText(t *testing.T) {
	task := &model.Task{Title: "buy milk"}
	cases := []struct {
		payload     mqcontracts.TaskChangedPayload
		wantTitle   string
		wantMessage string
	}{
		{
			payload:     mqcontracts.TaskChangedPayload{EventType: mqcontracts.EventInsert, New: task},
			wantTitle:   "New Task Added",
			wantMessage: "Task: buy milk has been added!",
		},
		{
			payload:     mqcontracts.TaskChangedPayload{EventType: mqcontracts.EventUpdate, New: task},
			wantTitle:   "Task Updated",
			wantMessage: "Task: buy milk was updated!",
		},
		{
			payload:     mqcontracts.TaskChangedPayload{EventType: mqcontracts.EventDelete, Old: task},
			wantTitle:   "Task Deleted",
			wantMessage: "Task: buy milk was deleted!",
		},
	}
	for _, tc := range cases {
		title, message := NotificationText(tc.payload)
		if title != tc.wantTitle || message != tc.wantMessage {
			t.Errorf("%s: got (%q, %q), want (%q, %q)",
				tc.payload.EventType, title, message, tc.wantTitle, tc.wantMessage)
		}
	}
}

func TestHandleBroadcastsChange(t *testing.T) {
	bc := &fakeBroadcaster{}
	h := NewTaskChangedHandler(bc, zap.NewNop())

	payload, _ := json.Marshal(mqcontracts.TaskChangedPayload{
		EventType: mqcontracts.EventInsert,
		New:       &model.Task{ID: 1, UserID: 2, Title: "buy milk"},
	})
	if err := h.Handle(context.Background(), payload); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if bc.title != "New Task Added" {
		t.Fatalf("broadcast title = %q", bc.title)
	}
}

func TestHandleMalformedPayloadNotRetried(t *testing.T) {
	bc := &fakeBroadcaster{}
	h := NewTaskChangedHandler(bc, zap.NewNop())

	if err := h.Handle(context.Background(), []byte("{not json")); err != nil {
		t.Fatalf("malformed payload should be dropped, got %v", err)
	}
	if bc.calls != 0 {
		t.Fatal("broadcast attempted for malformed payload")
	}
}

func TestHandleBroadcastFailureIsRetryable(t *testing.T) {
	bc := &fakeBroadcaster{err: errors.New("db down")}
	h := NewTaskChangedHandler(bc, zap.NewNop())

	payload, _ := json.Marshal(mqcontracts.TaskChangedPayload{
		EventType: mqcontracts.EventUpdate,
		New:       &model.Task{ID: 1, Title: "x"},
	})
	if err := h.Handle(context.Background(), payload); err == nil {
		t.Fatal("expected error so the message is requeued")
	}
}

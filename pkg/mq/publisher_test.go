package mq

import "testing"

func TestPublishRejectsUnencodablePayload(t *testing.T) {
	// Marshal failure must surface before any channel use, so the zero value
	// is safe here.
	p := &Publisher{}
	if err := p.Publish("task.changed", func() {}); err == nil {
		t.Fatal("expected an encode error for an unmarshalable payload")
	}
}

func TestIsConnectedZeroValue(t *testing.T) {
	p := &Publisher{}
	if p.IsConnected() {
		t.Fatal("zero-value publisher reported connected")
	}
}

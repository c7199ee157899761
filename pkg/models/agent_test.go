package models

import (
	"testing"
	"time"
)

func TestAgentStatusValid(t *testing.T) {
	valid := []AgentStatus{
		AgentStatusIdle, AgentStatusBusy, AgentStatusError,
		AgentStatusCompleted, AgentStatusTerminated,
	}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}

	if AgentStatus("sleeping").Valid() {
		t.Error("expected unknown status to be invalid")
	}
}

func TestNewMessage(t *testing.T) {
	before := time.Now()
	msg := NewMessage("agent-1", "agent-2", "notify", map[string]any{"key": "value"})

	if msg.Sender != "agent-1" || msg.Receiver != "agent-2" {
		t.Errorf("unexpected sender/receiver: %q -> %q", msg.Sender, msg.Receiver)
	}
	if msg.Type != "notify" {
		t.Errorf("expected type notify, got %q", msg.Type)
	}
	if msg.Timestamp.Before(before) {
		t.Error("expected timestamp at or after creation time")
	}
	if msg.Content["key"] != "value" {
		t.Error("expected content to round-trip")
	}
}

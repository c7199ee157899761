package models

import "time"

// Message is a best-effort inter-agent notification.
// Delivery is at-most-once; ordering is FIFO per sender only.
type Message struct {
	// Sender is the ID of the sending agent.
	Sender string `json:"sender"`
	// Receiver is the ID of the receiving agent.
	Receiver string `json:"receiver"`
	// Type classifies the message for the handler.
	Type string `json:"type"`
	// Content holds the message payload.
	Content map[string]any `json:"content,omitempty"`
	// Timestamp is when the message was created.
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a message stamped with the current time.
func NewMessage(sender, receiver, msgType string, content map[string]any) Message {
	return Message{
		Sender:    sender,
		Receiver:  receiver,
		Type:      msgType,
		Content:   content,
		Timestamp: time.Now(),
	}
}

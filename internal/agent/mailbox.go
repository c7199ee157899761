package agent

import (
	"log"

	"github.com/swarmforge/swarmforge/pkg/models"
)

// Receive enqueues a message for later processing. Delivery is at-most-once:
// when the mailbox is full the message is dropped and Receive returns false.
func (b *Base) Receive(msg models.Message) bool {
	select {
	case b.mailbox <- msg:
		return true
	default:
		log.Printf("[agent] %s mailbox full, dropped %s message from %s", b.name, msg.Type, msg.Sender)
		return false
	}
}

// Drain processes all currently queued messages once, in FIFO order.
// Non-blocking when the mailbox is empty. A nil handler logs each message.
func (b *Base) Drain(handler func(models.Message)) {
	if handler == nil {
		handler = b.handleMessage
	}

	for {
		select {
		case msg := <-b.mailbox:
			handler(msg)
		default:
			return
		}
	}
}

// handleMessage is the default message handler.
func (b *Base) handleMessage(msg models.Message) {
	log.Printf("[agent] %s received message: %s from %s", b.name, msg.Type, msg.Sender)
}

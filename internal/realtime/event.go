package realtime

import "context"

const (
	EventConnected  = "connected"
	EventJoined     = "joined"
	EventLeft       = "left"
	EventNewMessage = "new-message"
	EventTyping     = "typing"
	EventStopTyping = "stop-typing"
	EventError      = "error"
)

// Event is the frame written to subscribed clients.
type Event struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
	PrincipalID    string `json:"principal_id,omitempty"`
	Message        any    `json:"message,omitempty"`
	Code           string `json:"code,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Delivery addresses an event. It reaches every session subscribed to the
// conversation and every session of the listed recipients, once each.
type Delivery struct {
	Event      Event    `json:"event"`
	Recipients []string `json:"recipients,omitempty"`
	Exclude    string   `json:"exclude,omitempty"`
}

// Publisher fans deliveries out. Delivery is best-effort: a nil error means
// the delivery was handed to the transport, not that anyone received it.
type Publisher interface {
	Publish(ctx context.Context, d Delivery) error
}

func NewMessageDelivery(conversationID string, participants []string, message any) Delivery {
	return Delivery{
		Event:      Event{Type: EventNewMessage, ConversationID: conversationID, Message: message},
		Recipients: participants,
	}
}

// TypingDelivery signals typing (or its end) to everyone in the conversation
// except the typist.
func TypingDelivery(conversationID, principalID string, typing bool) Delivery {
	kind := EventStopTyping
	if typing {
		kind = EventTyping
	}
	return Delivery{
		Event:   Event{Type: kind, ConversationID: conversationID, PrincipalID: principalID},
		Exclude: principalID,
	}
}

package domain

import "time"

// ActivityKind defines the category of an inbound activity.
type ActivityKind string

const (
	ActivityMessage            ActivityKind = "message"
	ActivityMembersAdded       ActivityKind = "membersAdded"
	ActivityConversationUpdate ActivityKind = "conversationUpdate"
	ActivityTyping             ActivityKind = "typing"
	ActivityEndOfConversation  ActivityKind = "endOfConversation"
)

// Account identifies a participant of a conversation (user or bot).
type Account struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Activity is the normalized inbound event handed to the engine by a transport.
// An empty Kind is treated as a message.
type Activity struct {
	Kind         ActivityKind `json:"type"`
	ID           string       `json:"id,omitempty"`
	Text         string       `json:"text,omitempty"`
	Value        any          `json:"value,omitempty"`
	From         Account      `json:"from"`
	Recipient    Account      `json:"recipient"`
	MembersAdded []Account    `json:"members_added,omitempty"`
	Timestamp    time.Time    `json:"timestamp"`
}

// NewMessage builds a message activity carrying free text.
func NewMessage(text string) Activity {
	return Activity{
		Kind:      ActivityMessage,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// NewMembersAdded builds a membership event for the given participants.
func NewMembersAdded(members ...Account) Activity {
	return Activity{
		Kind:         ActivityMembersAdded,
		MembersAdded: members,
		Timestamp:    time.Now(),
	}
}

// IsMessage reports whether the activity answers or starts a dialog.
func (a Activity) IsMessage() bool {
	return a.Kind == ActivityMessage || a.Kind == ""
}

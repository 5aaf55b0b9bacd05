package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// Identity scopes a conversation: every distinct triple owns its own DialogStack.
type Identity struct {
	ChannelID      string `json:"channel_id"`
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
}

// Validate reports ErrInvalidIdentity when any component is empty.
func (id Identity) Validate() error {
	switch {
	case id.ChannelID == "":
		return fmt.Errorf("%w: channel id is required", ErrInvalidIdentity)
	case id.ConversationID == "":
		return fmt.Errorf("%w: conversation id is required", ErrInvalidIdentity)
	case id.UserID == "":
		return fmt.Errorf("%w: user id is required", ErrInvalidIdentity)
	}
	return nil
}

// Key returns a stable, reversible storage key ("channel/conversation/user").
// Each component is path-escaped so separators inside ids cannot collide.
func (id Identity) Key() string {
	return url.PathEscape(id.ChannelID) + "/" +
		url.PathEscape(id.ConversationID) + "/" +
		url.PathEscape(id.UserID)
}

func (id Identity) String() string {
	return id.Key()
}

// WithUser returns a copy of the identity scoped to another participant of the
// same conversation.
func (id Identity) WithUser(userID string) Identity {
	id.UserID = userID
	return id
}

// ParseKey is the inverse of Identity.Key.
func ParseKey(key string) (Identity, error) {
	parts := strings.Split(key, "/")
	if len(parts) != 3 {
		return Identity{}, fmt.Errorf("%w: malformed key %q", ErrInvalidIdentity, key)
	}

	var decoded [3]string
	for i, p := range parts {
		v, err := url.PathUnescape(p)
		if err != nil {
			return Identity{}, fmt.Errorf("%w: malformed key %q: %v", ErrInvalidIdentity, key, err)
		}
		decoded[i] = v
	}

	id := Identity{ChannelID: decoded[0], ConversationID: decoded[1], UserID: decoded[2]}
	if err := id.Validate(); err != nil {
		return Identity{}, err
	}
	return id, nil
}

package ports

import (
	"context"

	"github.com/aretw0/turnstile/pkg/domain"
)

// TurnEngine is the driving port used by transports (HTTP, MCP, Telegram, console).
type TurnEngine interface {
	// ProcessTurn runs one inbound activity for an identity and returns the
	// outbound sequence.
	ProcessTurn(ctx context.Context, id domain.Identity, activity domain.Activity) ([]domain.Reply, error)

	// Reset forgets the conversation state of an identity.
	Reset(ctx context.Context, id domain.Identity) error

	// Inspect returns the stored stack of an identity without changing it.
	Inspect(ctx context.Context, id domain.Identity) (*domain.DialogStack, error)
}

package runner

import (
	"context"

	"github.com/aretw0/turnstile/pkg/domain"
)

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type IOHandler interface {
	// Output presents the replies of one turn to the user.
	Output(ctx context.Context, replies []domain.Reply) error

	// Input reads the next line from the user.
	Input(ctx context.Context) (string, error)

	// SystemOutput presents a meta-message to the user (e.g. errors, status updates).
	// This is distinct from bot replies.
	SystemOutput(ctx context.Context, msg string) error
}

// ReplyFormatter turns the replies of a turn into terminal text.
type ReplyFormatter func(replies []domain.Reply) string

package ports

import (
	"context"

	"github.com/aretw0/turnstile/pkg/domain"
)

// StateStore defines the interface for persisting dialog stacks.
// This is what lets a multi-turn exchange survive process restarts.
type StateStore interface {
	// Load retrieves the stack stored for an identity.
	// Returns domain.ErrStackNotFound if nothing is stored.
	Load(ctx context.Context, id domain.Identity) (*domain.DialogStack, error)

	// Save stores the stack if the stored version still equals stack.Version
	// (absent counts as 0), then bumps stack.Version.
	// Returns domain.ErrConflict when another writer got there first.
	Save(ctx context.Context, id domain.Identity, stack *domain.DialogStack) error

	// Delete removes the stack stored for an identity. Deleting an absent
	// stack is not an error.
	Delete(ctx context.Context, id domain.Identity) error

	// List returns the identities that currently have a stored stack.
	List(ctx context.Context) ([]domain.Identity, error)
}

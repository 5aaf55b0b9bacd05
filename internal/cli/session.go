package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/turnstile/pkg/domain"
	"github.com/aretw0/turnstile/pkg/ports"
)

// ListSessions prints every identity with a stored stack.
func ListSessions(ctx context.Context, w io.Writer, store ports.StateStore) error {
	ids, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("error listing sessions: %w", err)
	}
	if len(ids) == 0 {
		fmt.Fprintln(w, "No active sessions found.")
		return nil
	}

	fmt.Fprintln(w, "Active Sessions:")
	for _, id := range ids {
		fmt.Fprintln(w, "- "+id.Key())
	}
	return nil
}

// InspectSession pretty prints the stack of one identity key.
func InspectSession(ctx context.Context, w io.Writer, store ports.StateStore, key string) error {
	id, err := domain.ParseKey(key)
	if err != nil {
		return err
	}
	stack, err := store.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("error loading session '%s': %w", key, err)
	}

	data, err := json.MarshalIndent(stack, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling stack: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// RemoveSessions deletes the stacks of the given identity keys, or of every
// stored identity when all is set.
func RemoveSessions(ctx context.Context, w io.Writer, store ports.StateStore, keys []string, all bool) error {
	ids := make([]domain.Identity, 0, len(keys))
	if all {
		listed, err := store.List(ctx)
		if err != nil {
			return fmt.Errorf("error listing sessions: %w", err)
		}
		ids = append(ids, listed...)
	} else {
		for _, key := range keys {
			id, err := domain.ParseKey(key)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
	}

	var errs []error
	for _, id := range ids {
		if err := store.Delete(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("error removing '%s': %w", id.Key(), err))
			continue
		}
		fmt.Fprintf(w, "Removed session '%s'\n", id.Key())
	}
	return errors.Join(errs...)
}

package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/turnstile/pkg/domain"
	"github.com/aretw0/turnstile/pkg/ports"
)

// ValidateRegistry checks for broken child dialog calls and dialogs that are
// unreachable from the root. Per-dialog structure is checked on registration.
func ValidateRegistry(catalog ports.DialogSource, root string) error {
	if _, ok := catalog.Dialog(root); !ok {
		return fmt.Errorf("root dialog '%s' not found: %w", root, domain.ErrDialogNotFound)
	}

	visited := make(map[string]bool)
	queue := []string{root}

	var errors []string

	for len(queue) > 0 {
		currentID := queue[0]
		queue = queue[1:]

		if visited[currentID] {
			continue
		}
		visited[currentID] = true

		d, ok := catalog.Dialog(currentID)
		if !ok {
			continue
		}

		for _, s := range d.Steps {
			if s.Calls == "" {
				continue
			}
			if _, ok := catalog.Dialog(s.Calls); !ok {
				errors = append(errors, fmt.Sprintf("Missing dialog: '%s' (called by %s/%s)", s.Calls, d.ID, s.Name))
				continue
			}
			if !visited[s.Calls] {
				queue = append(queue, s.Calls)
			}
		}
	}

	for _, d := range catalog.Dialogs() {
		if !visited[d.ID] {
			errors = append(errors, fmt.Sprintf("Unreachable dialog: '%s'", d.ID))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("found %d errors:\n- %s", len(errors), strings.Join(errors, "\n- "))
	}

	return nil
}

// CheckCalls reports calls to dialogs that are not registered, across every
// dialog regardless of reachability.
func CheckCalls(catalog ports.DialogSource) error {
	var missing []string
	for _, d := range catalog.Dialogs() {
		for _, s := range d.Steps {
			if s.Calls == "" {
				continue
			}
			if _, ok := catalog.Dialog(s.Calls); !ok {
				missing = append(missing, fmt.Sprintf("'%s' (called by %s/%s)", s.Calls, d.ID, s.Name))
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing dialogs: %s: %w", strings.Join(missing, ", "), domain.ErrDialogNotFound)
	}
	return nil
}

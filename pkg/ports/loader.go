package ports

import "github.com/aretw0/turnstile/pkg/domain"

// DialogSource resolves dialog definitions.
type DialogSource interface {
	// Dialog returns the dialog registered under id.
	Dialog(id string) (*domain.Dialog, bool)

	// Dialogs returns every registered dialog, sorted by id.
	// This is used for introspection and visualization tools (e.g. 'turnstile graph').
	Dialogs() []*domain.Dialog
}

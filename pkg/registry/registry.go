package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/turnstile/pkg/domain"
)

// Registry holds the dialogs an engine can run, plus named validators and
// actions that data-driven dialogs refer to by name.
// Safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	dialogs    map[string]*domain.Dialog
	validators map[string]domain.Validator
	actions    map[string]domain.Action
}

// New creates a new empty registry.
func New() *Registry {
	return &Registry{
		dialogs:    make(map[string]*domain.Dialog),
		validators: make(map[string]domain.Validator),
		actions:    make(map[string]domain.Action),
	}
}

// Register validates and adds a dialog.
// If a dialog with the same id exists, it is replaced. Stacks that still point
// at steps of the old definition are detected as stale on their next turn.
func (r *Registry) Register(d *domain.Dialog) error {
	if d == nil {
		return fmt.Errorf("nil dialog")
	}
	if err := d.Validate(); err != nil {
		return fmt.Errorf("invalid dialog: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.dialogs[d.ID] = d
	return nil
}

// MustRegister is like Register but panics on error. Intended for static
// dialogs wired at startup.
func (r *Registry) MustRegister(dialogs ...*domain.Dialog) *Registry {
	for _, d := range dialogs {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
	return r
}

// Unregister removes a dialog.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.dialogs, id)
}

// Dialog looks up a dialog by id.
func (r *Registry) Dialog(id string) (*domain.Dialog, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.dialogs[id]
	return d, ok
}

// Dialogs returns every registered dialog sorted by id.
func (r *Registry) Dialogs() []*domain.Dialog {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Dialog, 0, len(r.dialogs))
	for _, d := range r.dialogs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RegisterValidator adds a named validator.
// If a validator with the same name exists, it is overwritten.
func (r *Registry) RegisterValidator(name string, v domain.Validator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators[name] = v
}

// Validator looks up a named validator.
func (r *Registry) Validator(name string) (domain.Validator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.validators[name]
	return v, ok
}

// RegisterAction adds a named action.
// If an action with the same name exists, it is overwritten.
func (r *Registry) RegisterAction(name string, a domain.Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[name] = a
}

// Action looks up a named action.
func (r *Registry) Action(name string) (domain.Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[name]
	return a, ok
}

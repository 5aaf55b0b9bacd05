package domain

import (
	"errors"
	"fmt"
)

// Dialog is an ordered list of steps. It is immutable once registered and is
// shared read-only by every conversation.
type Dialog struct {
	ID      string
	Steps   []Step
	Prompts map[string]Prompt
}

// StepAt returns the step at index i.
func (d *Dialog) StepAt(i int) (Step, bool) {
	if i < 0 || i >= len(d.Steps) {
		return Step{}, false
	}
	return d.Steps[i], true
}

// Prompt looks up a prompt definition by id.
func (d *Dialog) Prompt(id string) (Prompt, bool) {
	p, ok := d.Prompts[id]
	return p, ok
}

// Validate checks the dialog is self-consistent: named steps, unique names,
// variants carrying their payload and prompts that exist.
func (d *Dialog) Validate() error {
	if d.ID == "" {
		return errors.New("dialog id is required")
	}
	if len(d.Steps) == 0 {
		return fmt.Errorf("dialog %q has no steps", d.ID)
	}

	var errs []error
	seen := make(map[string]bool, len(d.Steps))
	for i, s := range d.Steps {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("dialog %q: step %d has no name", d.ID, i))
		} else if seen[s.Name] {
			errs = append(errs, fmt.Errorf("dialog %q: duplicate step name %q", d.ID, s.Name))
		}
		seen[s.Name] = true

		switch s.Kind {
		case StepPlain:
			if s.Action == nil {
				errs = append(errs, fmt.Errorf("dialog %q: plain step %q has no action", d.ID, s.Name))
			}
		case StepPrompt:
			if _, ok := d.Prompts[s.PromptID]; !ok {
				errs = append(errs, fmt.Errorf("dialog %q: step %q uses unknown prompt %q", d.ID, s.Name, s.PromptID))
			}
		default:
			errs = append(errs, fmt.Errorf("dialog %q: step %q has unknown kind %q", d.ID, s.Name, s.Kind))
		}
	}

	for id, p := range d.Prompts {
		if p.ID != id {
			errs = append(errs, fmt.Errorf("dialog %q: prompt registered as %q has id %q", d.ID, id, p.ID))
		}
		switch p.Input {
		case InputText, InputChoice, InputConfirm, InputNumber, InputActivity:
		default:
			errs = append(errs, fmt.Errorf("dialog %q: prompt %q has unknown input kind %q", d.ID, id, p.Input))
		}
	}

	return errors.Join(errs...)
}

package dsl

import (
	"context"
	"fmt"

	"github.com/aretw0/turnstile/pkg/domain"
)

// Builder assembles a single dialog step by step.
type Builder struct {
	dialog  domain.Dialog
	prompts []*PromptBuilder
}

// New creates a builder for the dialog with the given id.
func New(id string) *Builder {
	return &Builder{
		dialog: domain.Dialog{
			ID:      id,
			Prompts: make(map[string]domain.Prompt),
		},
	}
}

// Say appends a plain step that sends a message and advances.
func (b *Builder) Say(name, text string) *Builder {
	return b.Do(name, func(_ context.Context, sc domain.StepContext) (domain.StepResult, error) {
		sc.Send(domain.Message(text))
		return domain.Advance(), nil
	})
}

// Do appends a plain step running an arbitrary action.
func (b *Builder) Do(name string, action domain.Action) *Builder {
	b.dialog.Steps = append(b.dialog.Steps, domain.Plain(name, action))
	return b
}

// Call appends a plain step that begins a child dialog.
// The child's completion value is stored under the step name.
func (b *Builder) Call(name, dialogID string) *Builder {
	return b.CallWhen(name, dialogID, nil)
}

// CallWhen is like Call but skips the child dialog when cond reports false.
// A nil cond always calls.
func (b *Builder) CallWhen(name, dialogID string, cond func(domain.StepContext) bool) *Builder {
	if cond == nil {
		return b.CallIf(name, dialogID, nil)
	}
	return b.CallIf(name, dialogID, func(sc domain.StepContext) (bool, error) {
		return cond(sc), nil
	})
}

// CallIf is like CallWhen for conditions that can fail. An error from cond
// fails the step.
func (b *Builder) CallIf(name, dialogID string, cond func(domain.StepContext) (bool, error)) *Builder {
	step := domain.Plain(name, func(_ context.Context, sc domain.StepContext) (domain.StepResult, error) {
		if cond != nil {
			ok, err := cond(sc)
			if err != nil {
				return domain.StepResult{}, err
			}
			if !ok {
				return domain.Advance(), nil
			}
		}
		return domain.BeginDialog(dialogID), nil
	})
	step.Calls = dialogID
	b.dialog.Steps = append(b.dialog.Steps, step)
	return b
}

// Ask appends a prompt step with its own prompt, identified by the step name.
// The returned PromptBuilder configures validation and retry.
func (b *Builder) Ask(name string, kind domain.InputKind, render domain.RenderFunc) *PromptBuilder {
	pb := b.Prompt(name, kind)
	b.AskWith(name, name, render)
	return pb
}

// AskWith appends a prompt step bound to a prompt declared with Prompt.
func (b *Builder) AskWith(name, promptID string, render domain.RenderFunc) *Builder {
	b.dialog.Steps = append(b.dialog.Steps, domain.PromptStep(name, promptID, render))
	return b
}

// Prompt declares a prompt that several steps may share.
// Declaring an existing id returns its builder.
func (b *Builder) Prompt(id string, kind domain.InputKind) *PromptBuilder {
	for _, pb := range b.prompts {
		if pb.prompt.ID == id {
			return pb
		}
	}
	pb := &PromptBuilder{
		prompt:  domain.Prompt{ID: id, Input: kind},
		builder: b,
	}
	b.prompts = append(b.prompts, pb)
	return pb
}

// Build validates and returns the dialog.
func (b *Builder) Build() (*domain.Dialog, error) {
	d := b.dialog
	d.Steps = append([]domain.Step(nil), b.dialog.Steps...)
	d.Prompts = make(map[string]domain.Prompt, len(b.prompts))
	for _, pb := range b.prompts {
		d.Prompts[pb.prompt.ID] = pb.prompt
	}

	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("failed to build dialog %q: %w", d.ID, err)
	}
	return &d, nil
}

// MustBuild is like Build but panics on error.
func (b *Builder) MustBuild() *domain.Dialog {
	d, err := b.Build()
	if err != nil {
		panic(err)
	}
	return d
}

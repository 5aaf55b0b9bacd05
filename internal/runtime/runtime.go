package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/turnstile/internal/logging"
	"github.com/aretw0/turnstile/pkg/domain"
	"github.com/aretw0/turnstile/pkg/ports"
)

const (
	// DefaultMaxSteps bounds the steps executed by a single turn.
	DefaultMaxSteps = 256
	// DefaultRetryMessage is sent when a prompt rejects input and neither the
	// prompt nor its options carry a retry text.
	DefaultRetryMessage = "Sorry, I didn't get that. Please try again."
)

// Runtime drives dialog stacks. It is stateless between calls: everything a
// turn needs travels in the stack it is given, which it mutates in place.
// Callers hand it a private clone so an abandoned turn never leaks state.
type Runtime struct {
	dialogs      ports.DialogSource
	logger       *slog.Logger
	hooks        domain.LifecycleHooks
	retryMessage string
	maxSteps     int
}

// Option configures the Runtime.
type Option func(*Runtime)

// WithLogger configures a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// WithLifecycleHooks registers observers for dialog and prompt events.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(r *Runtime) {
		r.hooks = hooks
	}
}

// WithRetryMessage sets the fallback retry message.
func WithRetryMessage(msg string) Option {
	return func(r *Runtime) {
		if msg != "" {
			r.retryMessage = msg
		}
	}
}

// WithMaxSteps sets the per-turn step budget.
func WithMaxSteps(n int) Option {
	return func(r *Runtime) {
		if n > 0 {
			r.maxSteps = n
		}
	}
}

// New creates a runtime over a dialog source.
func New(dialogs ports.DialogSource, opts ...Option) *Runtime {
	r := &Runtime{
		dialogs:      dialogs,
		logger:       logging.NewNop(),
		retryMessage: DefaultRetryMessage,
		maxSteps:     DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Outcome is what a single advance produced.
type Outcome struct {
	Replies []domain.Reply
	Result  domain.TurnOutcome
	// Value is the completion value of the root dialog when Result is completed.
	Value any
}

// turn carries the per-call state through the loop.
type turn struct {
	identity domain.Identity
	activity domain.Activity
	stack    *domain.DialogStack
	replies  []domain.Reply
	value    any
}

// Begin pushes dialogID onto the stack and runs it until it suspends or the
// stack empties.
func (r *Runtime) Begin(ctx context.Context, stack *domain.DialogStack, dialogID string, id domain.Identity, act domain.Activity) (*Outcome, error) {
	t := &turn{identity: id, activity: act, stack: stack}

	if _, ok := r.dialogs.Dialog(dialogID); !ok {
		return nil, &domain.StepError{DialogID: dialogID, Err: fmt.Errorf("%w: %s", domain.ErrDialogNotFound, dialogID)}
	}
	r.push(ctx, t, dialogID)

	res, err := r.run(ctx, t)
	if err != nil {
		return nil, err
	}
	return &Outcome{Replies: t.replies, Result: res, Value: t.value}, nil
}

// Continue answers the pending prompt of the active frame with the activity
// and keeps running. A rejected answer leaves the stack untouched.
func (r *Runtime) Continue(ctx context.Context, stack *domain.DialogStack, id domain.Identity, act domain.Activity) (*Outcome, error) {
	t := &turn{identity: id, activity: act, stack: stack}

	frame := stack.Active()
	if frame == nil {
		return nil, fmt.Errorf("continue on an empty stack")
	}

	if err := r.check(stack); err != nil {
		return nil, err
	}
	d, _ := r.dialogs.Dialog(frame.DialogID)

	if frame.Pending != nil {
		if frame.StepIndex == len(d.Steps) {
			return nil, stale(frame, "pending prompt past the last step")
		}
		step := d.Steps[frame.StepIndex]
		p, ok := d.Prompt(frame.Pending.PromptID)
		if !ok {
			return nil, stale(frame, "prompt is not registered")
		}
		if step.Kind == domain.StepPrompt && step.PromptID != p.ID {
			return nil, stale(frame, fmt.Sprintf("step %q now uses prompt %q", step.Name, step.PromptID))
		}

		accepted, err := r.answer(ctx, t, d, step, p)
		if err != nil {
			return nil, err
		}
		if !accepted {
			return &Outcome{Replies: t.replies, Result: domain.OutcomeRetried}, nil
		}
	}

	res, err := r.run(ctx, t)
	if err != nil {
		return nil, err
	}
	return &Outcome{Replies: t.replies, Result: res, Value: t.value}, nil
}

// check rejects a stack any frame of which no longer matches the registry.
// Parent frames sit on the step that began their child, so their index must
// name an existing step; the active frame may also sit one past the end.
func (r *Runtime) check(stack *domain.DialogStack) error {
	top := len(stack.Frames) - 1
	for i := range stack.Frames {
		f := &stack.Frames[i]
		d, ok := r.dialogs.Dialog(f.DialogID)
		if !ok {
			return stale(f, "dialog is not registered")
		}
		limit := len(d.Steps)
		if i < top {
			limit--
		}
		if f.StepIndex < 0 || f.StepIndex > limit {
			return stale(f, fmt.Sprintf("step index out of range [0,%d]", limit))
		}
	}
	return nil
}

// answer recognizes and validates the inbound activity against the pending
// prompt. On acceptance the value is stored and the frame advances.
func (r *Runtime) answer(ctx context.Context, t *turn, d *domain.Dialog, step domain.Step, p domain.Prompt) (bool, error) {
	frame := t.stack.Active()
	pending := frame.Pending

	event := &domain.PromptEvent{
		Timestamp: time.Now(),
		Identity:  t.identity,
		DialogID:  d.ID,
		Step:      step.Name,
		PromptID:  p.ID,
		Input:     t.activity.Text,
	}

	value, ok := recognize(p.Input, t.activity, pending.Options)
	if ok && p.Validate != nil {
		valid, err := safeValidate(p.Validate, value)
		if err != nil {
			return false, &domain.StepError{DialogID: d.ID, Step: step.Name, Err: err}
		}
		ok = valid
	}

	if !ok {
		r.logger.Debug("prompt rejected input", "dialog_id", d.ID, "step", step.Name, "prompt_id", p.ID)
		if r.hooks.OnPromptRejected != nil {
			r.hooks.OnPromptRejected(ctx, event)
		}
		t.replies = append(t.replies, domain.Message(r.retryText(p, pending.Options)))
		t.replies = append(t.replies, renderPrompt(pending.Options)...)
		return false, nil
	}

	frame.Results[step.Name] = value
	frame.StepIndex++
	frame.Pending = nil

	r.logger.Debug("prompt accepted input", "dialog_id", d.ID, "step", step.Name, "prompt_id", p.ID)
	if r.hooks.OnPromptAccepted != nil {
		r.hooks.OnPromptAccepted(ctx, event)
	}
	return true, nil
}

func (r *Runtime) retryText(p domain.Prompt, opts domain.PromptOptions) string {
	switch {
	case p.RetryMessage != "":
		return p.RetryMessage
	case opts.RetryText != "":
		return opts.RetryText
	default:
		return r.retryMessage
	}
}

// run executes steps of the active frame until a prompt suspends or the stack
// is empty.
func (r *Runtime) run(ctx context.Context, t *turn) (domain.TurnOutcome, error) {
	executed := 0
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		frame := t.stack.Active()
		if frame == nil {
			return domain.OutcomeCompleted, nil
		}

		d, ok := r.dialogs.Dialog(frame.DialogID)
		if !ok {
			return "", stale(frame, "dialog is not registered")
		}
		if frame.StepIndex < 0 {
			return "", stale(frame, "negative step index")
		}
		if frame.StepIndex >= len(d.Steps) {
			if err := r.end(ctx, t, domain.CopyValues(frame.Results)); err != nil {
				return "", err
			}
			continue
		}

		executed++
		if executed > r.maxSteps {
			return "", &domain.StepError{DialogID: d.ID, Err: fmt.Errorf("%w: more than %d steps", domain.ErrStepBudgetExceeded, r.maxSteps)}
		}

		step := d.Steps[frame.StepIndex]
		res, err := r.execute(ctx, t, d, step)
		if err != nil {
			return "", &domain.StepError{DialogID: d.ID, Step: step.Name, Err: err}
		}

		// The step may not push frames itself, so frame is still the active one.
		switch res.Kind {
		case domain.ResultAdvance:
			frame.StepIndex++

		case domain.ResultSuspend:
			if _, ok := d.Prompt(res.PromptID); !ok {
				return "", &domain.StepError{DialogID: d.ID, Step: step.Name, Err: fmt.Errorf("unknown prompt %q", res.PromptID)}
			}
			frame.Pending = &domain.PendingPrompt{PromptID: res.PromptID, Options: res.Options}
			t.replies = append(t.replies, renderPrompt(res.Options)...)
			return domain.OutcomeSuspended, nil

		case domain.ResultComplete:
			if err := r.end(ctx, t, res.Value); err != nil {
				return "", err
			}

		case domain.ResultBeginDialog:
			if _, ok := r.dialogs.Dialog(res.DialogID); !ok {
				return "", &domain.StepError{DialogID: d.ID, Step: step.Name, Err: fmt.Errorf("%w: %s", domain.ErrDialogNotFound, res.DialogID)}
			}
			r.push(ctx, t, res.DialogID)

		default:
			return "", &domain.StepError{DialogID: d.ID, Step: step.Name, Err: fmt.Errorf("unknown step result %s", res.Kind)}
		}
	}
}

// execute runs one step, converting panics into errors.
func (r *Runtime) execute(ctx context.Context, t *turn, d *domain.Dialog, step domain.Step) (res domain.StepResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("step panicked: %v", p)
		}
	}()

	sc := &stepContext{turn: t, frame: t.stack.Depth() - 1, dialogID: d.ID}

	switch step.Kind {
	case domain.StepPrompt:
		var opts domain.PromptOptions
		if step.Render != nil {
			opts = step.Render(sc)
		}
		return domain.Suspend(step.PromptID, opts), nil
	case domain.StepPlain:
		return step.Action(ctx, sc)
	default:
		return domain.StepResult{}, fmt.Errorf("unknown step kind %q", step.Kind)
	}
}

func (r *Runtime) push(ctx context.Context, t *turn, dialogID string) {
	t.stack.Push(domain.NewFrame(dialogID))
	r.logger.Debug("dialog begin", "dialog_id", dialogID, "depth", t.stack.Depth())
	if r.hooks.OnDialogBegin != nil {
		r.hooks.OnDialogBegin(ctx, &domain.DialogEvent{
			Timestamp: time.Now(),
			Identity:  t.identity,
			DialogID:  dialogID,
			Depth:     t.stack.Depth(),
		})
	}
}

// end pops the active frame and hands its value to the parent, which advances.
func (r *Runtime) end(ctx context.Context, t *turn, value any) error {
	depth := t.stack.Depth()
	done, _ := t.stack.Pop()

	r.logger.Debug("dialog end", "dialog_id", done.DialogID, "depth", depth)
	if r.hooks.OnDialogEnd != nil {
		r.hooks.OnDialogEnd(ctx, &domain.DialogEvent{
			Timestamp: time.Now(),
			Identity:  t.identity,
			DialogID:  done.DialogID,
			Depth:     depth,
		})
	}

	parent := t.stack.Active()
	if parent == nil {
		t.value = value
		return nil
	}

	d, ok := r.dialogs.Dialog(parent.DialogID)
	if !ok {
		return stale(parent, "dialog is not registered")
	}
	step, ok := d.StepAt(parent.StepIndex)
	if !ok {
		return stale(parent, fmt.Sprintf("step index out of range [0,%d)", len(d.Steps)))
	}
	parent.Results[step.Name] = value
	parent.StepIndex++
	return nil
}

func stale(f *domain.Frame, reason string) *domain.StaleStateError {
	e := &domain.StaleStateError{DialogID: f.DialogID, StepIndex: f.StepIndex, Reason: reason}
	if f.Pending != nil {
		e.PromptID = f.Pending.PromptID
	}
	return e
}

func safeValidate(v domain.Validator, value any) (ok bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("validator panicked: %v", p)
		}
	}()
	return v(value), nil
}

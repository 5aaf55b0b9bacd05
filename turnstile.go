package turnstile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/turnstile/internal/logging"
	"github.com/aretw0/turnstile/internal/runtime"
	"github.com/aretw0/turnstile/pkg/adapters/memory"
	"github.com/aretw0/turnstile/pkg/domain"
	"github.com/aretw0/turnstile/pkg/ports"
	"github.com/aretw0/turnstile/pkg/session"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultErrorMessage is the single reply a user sees when a step fails.
	DefaultErrorMessage = "The bot encountered an error or bug."
	// DefaultCancelMessage acknowledges a cancel phrase.
	DefaultCancelMessage = "Okay, I've cancelled that. Send anything to start over."
	// ErrorTraceName labels the diagnostic trace reply of a failed turn.
	ErrorTraceName = "OnTurnError Trace"

	tracerName = "github.com/aretw0/turnstile"
)

// DefaultCancelPhrases end every active dialog when sent as a whole message.
var DefaultCancelPhrases = []string{"cancel", "quit"}

// Engine is the high-level entry point for the Turnstile library.
// It serializes turns per identity, drives the dialog runtime and persists
// the resulting stack with exactly one write per turn.
type Engine struct {
	dialogs  ports.DialogSource
	store    ports.StateStore
	sessions *session.Manager
	runtime  *runtime.Runtime

	rootDialog    string
	logger        *slog.Logger
	hookSets      []domain.LifecycleHooks
	hooks         domain.LifecycleHooks
	turnTimeout   time.Duration
	locker        ports.DistributedLocker
	lockTTL       time.Duration
	errorMessage  string
	retryMessage  string
	cancelPhrases []string
	cancelMessage string
	maxSteps      int
	botID         string
	traceReplies  bool

	tracerProvider trace.TracerProvider
	tracer         trace.Tracer
}

var _ ports.TurnEngine = (*Engine)(nil)

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithRegistry sets the dialogs the engine can run. Required.
func WithRegistry(dialogs ports.DialogSource) Option {
	return func(e *Engine) {
		e.dialogs = dialogs
	}
}

// WithStore sets the state store (default: in-memory).
func WithStore(store ports.StateStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithRootDialog sets the dialog started on an empty stack.
// It can be omitted when exactly one dialog is registered.
func WithRootDialog(id string) Option {
	return func(e *Engine) {
		e.rootDialog = id
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
// It may be given several times; every hook set is called in order.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hookSets = append(e.hookSets, hooks)
	}
}

// WithTurnTimeout bounds a whole turn, including the wait for its lock.
// Zero disables the deadline. A timed out turn releases its lock without
// waiting for the running step, so actions must return once their context
// is done or they may overlap the identity's next turn.
func WithTurnTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.turnTimeout = d
	}
}

// WithLocker layers a distributed lock over the in-process one, for
// deployments running several replicas against a shared store.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(e *Engine) {
		e.locker = locker
		e.lockTTL = ttl
	}
}

// WithErrorMessage sets the reply sent when a step fails.
func WithErrorMessage(msg string) Option {
	return func(e *Engine) {
		if msg != "" {
			e.errorMessage = msg
		}
	}
}

// WithRetryMessage sets the fallback reply for rejected input.
func WithRetryMessage(msg string) Option {
	return func(e *Engine) {
		e.retryMessage = msg
	}
}

// WithCancelPhrases replaces the phrases that cancel every active dialog,
// and optionally the acknowledgement sent back. No phrases disables it.
func WithCancelPhrases(message string, phrases ...string) Option {
	return func(e *Engine) {
		e.cancelPhrases = phrases
		if message != "" {
			e.cancelMessage = message
		}
	}
}

// WithMaxSteps sets the per-turn step budget.
func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		e.maxSteps = n
	}
}

// WithBotID names the bot's own account, so membership events about the bot
// itself do not start dialogs.
func WithBotID(id string) Option {
	return func(e *Engine) {
		e.botID = id
	}
}

// WithTraceReplies appends a trace reply describing the error to failed turns.
func WithTraceReplies(enabled bool) Option {
	return func(e *Engine) {
		e.traceReplies = enabled
	}
}

// WithTracerProvider sets the OpenTelemetry provider for turn spans
// (default: the global provider).
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		e.tracerProvider = tp
	}
}

// New initializes a new Turnstile Engine.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		errorMessage:  DefaultErrorMessage,
		cancelPhrases: DefaultCancelPhrases,
		cancelMessage: DefaultCancelMessage,
		maxSteps:      runtime.DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.dialogs == nil {
		return nil, fmt.Errorf("a dialog registry is required (use WithRegistry)")
	}
	if e.rootDialog == "" {
		all := e.dialogs.Dialogs()
		if len(all) != 1 {
			return nil, fmt.Errorf("root dialog must be set when %d dialogs are registered", len(all))
		}
		e.rootDialog = all[0].ID
	}
	if _, ok := e.dialogs.Dialog(e.rootDialog); !ok {
		return nil, fmt.Errorf("root dialog %q: %w", e.rootDialog, domain.ErrDialogNotFound)
	}

	if e.store == nil {
		e.store = memory.NewStore()
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.tracerProvider == nil {
		e.tracerProvider = otel.GetTracerProvider()
	}
	e.tracer = e.tracerProvider.Tracer(tracerName)
	e.hooks = domain.CombineHooks(e.hookSets...)

	sessionOpts := []session.Option{session.WithLogger(e.logger)}
	if e.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(e.locker), session.WithLockTTL(e.lockTTL))
	}
	e.sessions = session.NewManager(e.store, sessionOpts...)

	e.runtime = runtime.New(e.dialogs,
		runtime.WithLogger(e.logger),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithRetryMessage(e.retryMessage),
		runtime.WithMaxSteps(e.maxSteps),
	)

	return e, nil
}

// ProcessTurn handles one inbound activity for an identity and returns the
// replies to deliver, in order.
//
// Messages drive the active dialog. Membership events restart the root
// dialog for every added participant except the bot. End of conversation
// resets the stack. Any other activity is acknowledged without a turn.
func (e *Engine) ProcessTurn(ctx context.Context, id domain.Identity, act domain.Activity) ([]domain.Reply, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	switch {
	case act.IsMessage():
		return e.turn(ctx, id, act, false)

	case act.Kind == domain.ActivityMembersAdded || act.Kind == domain.ActivityConversationUpdate:
		var replies []domain.Reply
		for _, m := range act.MembersAdded {
			if m.ID == "" || m.ID == e.botID || m.ID == act.Recipient.ID {
				continue
			}
			out, err := e.turn(ctx, id.WithUser(m.ID), act, true)
			if err != nil {
				return replies, err
			}
			replies = append(replies, out...)
		}
		return replies, nil

	case act.Kind == domain.ActivityEndOfConversation:
		return nil, e.Reset(ctx, id)

	default:
		e.logger.Debug("activity ignored", "identity", id.String(), "kind", act.Kind)
		return nil, nil
	}
}

// turn runs load, advance and save for one identity under its lock.
func (e *Engine) turn(ctx context.Context, id domain.Identity, act domain.Activity, restart bool) ([]domain.Reply, error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "turnstile.turn", trace.WithAttributes(
		attribute.String("turnstile.channel_id", id.ChannelID),
		attribute.String("turnstile.conversation_id", id.ConversationID),
		attribute.String("turnstile.user_id", id.UserID),
		attribute.String("turnstile.activity", string(kindOf(act))),
		attribute.Bool("turnstile.restart", restart),
	))
	defer span.End()

	event := &domain.TurnEvent{Timestamp: start, Identity: id, ActivityKind: kindOf(act)}
	e.hooks.OnTurnStart(ctx, event)

	turnCtx := ctx
	if e.turnTimeout > 0 {
		var cancel context.CancelFunc
		turnCtx, cancel = context.WithTimeout(ctx, e.turnTimeout)
		defer cancel()
	}

	var replies []domain.Reply
	err := e.sessions.WithLock(turnCtx, id, func(ctx context.Context) error {
		stored, err := e.store.Load(ctx, id)
		switch {
		case errors.Is(err, domain.ErrStackNotFound):
			stored = domain.NewStack()
		case err != nil:
			return &domain.StoreUnavailableError{Op: "load", Err: err}
		}

		// The turn works on a private copy; only a successful save publishes it.
		stack := stored.Clone()

		var out *runtime.Outcome
		if !restart && e.isCancel(act) && !stack.Empty() {
			stack.Clear()
			out = &runtime.Outcome{
				Replies: []domain.Reply{domain.Message(e.cancelMessage)},
				Result:  domain.OutcomeCancelled,
			}
		} else {
			out, err = e.advanceWithin(ctx, id, act, stack, restart, event)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				replies = e.fail(ctx, span, event, err)
				return nil
			}
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.store.Save(ctx, id, stack); err != nil {
			return &domain.StoreUnavailableError{Op: "save", Err: err}
		}

		replies = out.Replies
		event.Outcome = out.Result
		if f := stack.Active(); f != nil {
			event.DialogID = f.DialogID
			event.StepIndex = f.StepIndex
		}
		return nil
	})

	event.Duration = time.Since(start)
	if err != nil {
		if turnCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			err = &domain.TurnTimeoutError{Identity: id, Timeout: e.turnTimeout}
		}
		event.Outcome = domain.OutcomeAborted
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Error("turn aborted", "identity", id.String(), "err", err)
		e.hooks.OnTurnError(ctx, event, err)
		e.hooks.OnTurnEnd(ctx, event)
		return nil, err
	}

	span.SetAttributes(attribute.String("turnstile.outcome", string(event.Outcome)))
	e.logger.Debug("turn processed",
		"identity", id.String(),
		"dialog_id", event.DialogID,
		"outcome", event.Outcome,
		"duration", event.Duration,
	)
	e.hooks.OnTurnEnd(ctx, event)
	return replies, nil
}

// advanceWithin runs advance, abandoning it when ctx ends first. The
// abandoned run only ever touches the private stack, which is never saved.
func (e *Engine) advanceWithin(ctx context.Context, id domain.Identity, act domain.Activity, stack *domain.DialogStack, restart bool, event *domain.TurnEvent) (*runtime.Outcome, error) {
	if ctx.Done() == nil {
		return e.advance(ctx, id, act, stack, restart, event)
	}

	type result struct {
		out *runtime.Outcome
		err error
	}
	done := make(chan result, 1)
	// The caller keeps writing to event once it stops waiting.
	snapshot := *event
	go func() {
		out, err := e.advance(ctx, id, act, stack, restart, &snapshot)
		done <- result{out, err}
	}()

	select {
	case r := <-done:
		return r.out, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// advance begins the root dialog on an empty stack, otherwise continues the
// active frame. Stale state is logged and restarted from scratch.
func (e *Engine) advance(ctx context.Context, id domain.Identity, act domain.Activity, stack *domain.DialogStack, restart bool, event *domain.TurnEvent) (*runtime.Outcome, error) {
	if restart {
		stack.Clear()
	}
	if stack.Empty() {
		return e.runtime.Begin(ctx, stack, e.rootDialog, id, act)
	}

	out, err := e.runtime.Continue(ctx, stack, id, act)

	var staleErr *domain.StaleStateError
	if errors.As(err, &staleErr) {
		e.logger.Warn("stale dialog state, restarting root dialog",
			"identity", id.String(),
			"dialog_id", staleErr.DialogID,
			"step", staleErr.StepIndex,
			"prompt_id", staleErr.PromptID,
			"err", err,
		)
		e.hooks.OnStaleState(ctx, event, err)
		stack.Clear()
		return e.runtime.Begin(ctx, stack, e.rootDialog, id, act)
	}
	return out, err
}

// fail reports a step failure and builds the replies the user sees.
func (e *Engine) fail(ctx context.Context, span trace.Span, event *domain.TurnEvent, err error) []domain.Reply {
	event.Outcome = domain.OutcomeFailed
	var stepErr *domain.StepError
	if errors.As(err, &stepErr) {
		event.DialogID = stepErr.DialogID
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	e.logger.Error("step failed", "identity", event.Identity.String(), "dialog_id", event.DialogID, "err", err)
	e.hooks.OnTurnError(ctx, event, err)

	replies := []domain.Reply{domain.Message(e.errorMessage)}
	if e.traceReplies {
		replies = append(replies, domain.Trace(ErrorTraceName, err.Error()))
	}
	return replies
}

func (e *Engine) isCancel(act domain.Activity) bool {
	if !act.IsMessage() {
		return false
	}
	text := strings.TrimSpace(act.Text)
	for _, p := range e.cancelPhrases {
		if strings.EqualFold(text, p) {
			return true
		}
	}
	return false
}

// Reset deletes the stored stack of an identity. The next activity starts
// the root dialog again.
func (e *Engine) Reset(ctx context.Context, id domain.Identity) error {
	if err := id.Validate(); err != nil {
		return err
	}
	if err := e.sessions.Delete(ctx, id); err != nil {
		return &domain.StoreUnavailableError{Op: "delete", Err: err}
	}
	e.logger.Debug("conversation reset", "identity", id.String())
	return nil
}

// Inspect returns a copy of the stored stack of an identity.
// It returns domain.ErrStackNotFound when nothing is stored.
func (e *Engine) Inspect(ctx context.Context, id domain.Identity) (*domain.DialogStack, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	stack, err := e.sessions.Load(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrStackNotFound) {
			return nil, err
		}
		return nil, &domain.StoreUnavailableError{Op: "load", Err: err}
	}
	return stack.Clone(), nil
}

// Conversations lists identities with a stored stack.
func (e *Engine) Conversations(ctx context.Context) ([]domain.Identity, error) {
	ids, err := e.sessions.List(ctx)
	if err != nil {
		return nil, &domain.StoreUnavailableError{Op: "list", Err: err}
	}
	return ids, nil
}

// Dialogs returns the dialog source the engine runs.
func (e *Engine) Dialogs() ports.DialogSource {
	return e.dialogs
}

// RootDialog returns the id of the dialog started on an empty stack.
func (e *Engine) RootDialog() string {
	return e.rootDialog
}

// Store returns the state store.
func (e *Engine) Store() ports.StateStore {
	return e.store
}

func kindOf(act domain.Activity) domain.ActivityKind {
	if act.Kind == "" {
		return domain.ActivityMessage
	}
	return act.Kind
}

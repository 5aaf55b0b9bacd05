package domain

import (
	"context"
	"time"
)

// TurnOutcome summarizes how a turn ended.
type TurnOutcome string

const (
	OutcomeSuspended TurnOutcome = "suspended" // A prompt is waiting for input
	OutcomeRetried   TurnOutcome = "retried"   // Input rejected, prompt re-rendered
	OutcomeCompleted TurnOutcome = "completed" // Root dialog finished, stack empty
	OutcomeCancelled TurnOutcome = "cancelled" // Cancel phrase cleared the stack
	OutcomeFailed    TurnOutcome = "failed"    // Step error, nothing persisted
	OutcomeAborted   TurnOutcome = "aborted"   // Store failure or timeout
	OutcomeIgnored   TurnOutcome = "ignored"   // Activity kind does not drive dialogs
)

// TurnEvent describes one turn for observers.
type TurnEvent struct {
	Timestamp    time.Time     `json:"timestamp"`
	Identity     Identity      `json:"identity"`
	ActivityKind ActivityKind  `json:"activity_kind"`
	DialogID     string        `json:"dialog_id,omitempty"`
	StepIndex    int           `json:"step_index"`
	Outcome      TurnOutcome   `json:"outcome,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
}

// DialogEvent describes a dialog being pushed or popped.
type DialogEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Identity  Identity  `json:"identity"`
	DialogID  string    `json:"dialog_id"`
	Depth     int       `json:"depth"`
}

// PromptEvent describes an answer to a pending prompt.
type PromptEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Identity  Identity  `json:"identity"`
	DialogID  string    `json:"dialog_id"`
	Step      string    `json:"step"`
	PromptID  string    `json:"prompt_id"`
	Input     string    `json:"input,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
// Every field is optional.
type LifecycleHooks struct {
	OnTurnStart      func(context.Context, *TurnEvent)
	OnTurnEnd        func(context.Context, *TurnEvent)
	OnTurnError      func(context.Context, *TurnEvent, error)
	OnStaleState     func(context.Context, *TurnEvent, error)
	OnDialogBegin    func(context.Context, *DialogEvent)
	OnDialogEnd      func(context.Context, *DialogEvent)
	OnPromptAccepted func(context.Context, *PromptEvent)
	OnPromptRejected func(context.Context, *PromptEvent)
}

// CombineHooks fans every callback out to each of the given hook sets, in order.
func CombineHooks(all ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnTurnStart: func(ctx context.Context, e *TurnEvent) {
			for _, h := range all {
				if h.OnTurnStart != nil {
					h.OnTurnStart(ctx, e)
				}
			}
		},
		OnTurnEnd: func(ctx context.Context, e *TurnEvent) {
			for _, h := range all {
				if h.OnTurnEnd != nil {
					h.OnTurnEnd(ctx, e)
				}
			}
		},
		OnTurnError: func(ctx context.Context, e *TurnEvent, err error) {
			for _, h := range all {
				if h.OnTurnError != nil {
					h.OnTurnError(ctx, e, err)
				}
			}
		},
		OnStaleState: func(ctx context.Context, e *TurnEvent, err error) {
			for _, h := range all {
				if h.OnStaleState != nil {
					h.OnStaleState(ctx, e, err)
				}
			}
		},
		OnDialogBegin: func(ctx context.Context, e *DialogEvent) {
			for _, h := range all {
				if h.OnDialogBegin != nil {
					h.OnDialogBegin(ctx, e)
				}
			}
		},
		OnDialogEnd: func(ctx context.Context, e *DialogEvent) {
			for _, h := range all {
				if h.OnDialogEnd != nil {
					h.OnDialogEnd(ctx, e)
				}
			}
		},
		OnPromptAccepted: func(ctx context.Context, e *PromptEvent) {
			for _, h := range all {
				if h.OnPromptAccepted != nil {
					h.OnPromptAccepted(ctx, e)
				}
			}
		},
		OnPromptRejected: func(ctx context.Context, e *PromptEvent) {
			for _, h := range all {
				if h.OnPromptRejected != nil {
					h.OnPromptRejected(ctx, e)
				}
			}
		},
	}
}

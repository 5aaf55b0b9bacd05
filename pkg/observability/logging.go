package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/turnstile/pkg/domain"
)

// LoggingHooks returns lifecycle hooks that write an audit trail of turns,
// dialogs and prompt answers. Raw user input is never logged.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurnEnd: func(ctx context.Context, e *domain.TurnEvent) {
			logger.InfoContext(ctx, "turn_end",
				"identity", e.Identity.String(),
				"activity", e.ActivityKind,
				"dialog_id", e.DialogID,
				"step", e.StepIndex,
				"outcome", e.Outcome,
				"duration", e.Duration,
			)
		},
		OnStaleState: func(ctx context.Context, e *domain.TurnEvent, err error) {
			logger.WarnContext(ctx, "stale_state", "identity", e.Identity.String(), "err", err)
		},
		OnDialogBegin: func(ctx context.Context, e *domain.DialogEvent) {
			logger.DebugContext(ctx, "dialog_begin", "identity", e.Identity.String(), "dialog_id", e.DialogID, "depth", e.Depth)
		},
		OnDialogEnd: func(ctx context.Context, e *domain.DialogEvent) {
			logger.DebugContext(ctx, "dialog_end", "identity", e.Identity.String(), "dialog_id", e.DialogID, "depth", e.Depth)
		},
		OnPromptAccepted: func(ctx context.Context, e *domain.PromptEvent) {
			logger.DebugContext(ctx, "prompt_accepted", "identity", e.Identity.String(), "dialog_id", e.DialogID, "prompt_id", e.PromptID)
		},
		OnPromptRejected: func(ctx context.Context, e *domain.PromptEvent) {
			logger.InfoContext(ctx, "prompt_rejected", "identity", e.Identity.String(), "dialog_id", e.DialogID, "prompt_id", e.PromptID)
		},
	}
}

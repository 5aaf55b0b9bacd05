package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/turnstile/internal/logging"
	"github.com/aretw0/turnstile/pkg/domain"
	"github.com/aretw0/turnstile/pkg/ports"
)

// Console commands handled by the runner itself.
const (
	CommandExit  = "/exit"
	CommandReset = "/reset"
)

// DefaultIdentity is the conversation used when none is configured.
var DefaultIdentity = domain.Identity{ChannelID: "console", ConversationID: "local", UserID: "user"}

// Runner feeds console input to a turn engine and prints its replies.
// Every line is one message activity.
type Runner struct {
	Handler  IOHandler
	Logger   *slog.Logger
	Identity domain.Identity
	Bot      domain.Account
	Greet    bool
}

// NewRunner creates a Runner reading Stdin and writing Stdout.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		Logger:   logging.NewNop(),
		Identity: DefaultIdentity,
		Bot:      domain.Account{ID: "bot", Name: "Turnstile"},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(os.Stdin, os.Stdout)
	}
	return r
}

// Run reads input until EOF, an exit command, or an interrupt.
// Turn failures are reported to the user and do not stop the loop.
func (r *Runner) Run(ctx context.Context, engine ports.TurnEngine) error {
	if err := r.Identity.Validate(); err != nil {
		return err
	}

	signals := NewSignalManager(ctx)
	defer signals.Stop()
	ctx = signals.Context()

	if r.Greet {
		act := domain.NewMembersAdded(r.user())
		if err := r.turn(ctx, engine, act); err != nil {
			return err
		}
	}

	for {
		text, err := r.Handler.Input(ctx)
		if err != nil {
			signals.CheckRace()
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				r.Logger.Debug("console closed", "err", err)
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}

		switch strings.ToLower(text) {
		case "":
			continue
		case CommandExit, "exit":
			return nil
		case CommandReset:
			if err := engine.Reset(ctx, r.Identity); err != nil {
				return err
			}
			if err := r.Handler.SystemOutput(ctx, "Conversation reset."); err != nil {
				return err
			}
			continue
		}

		if err := r.turn(ctx, engine, domain.NewMessage(text)); err != nil {
			return err
		}
	}
}

// turn runs one activity. Only output errors stop the runner.
func (r *Runner) turn(ctx context.Context, engine ports.TurnEngine, act domain.Activity) error {
	act.From = r.user()
	act.Recipient = r.Bot

	replies, err := engine.ProcessTurn(ctx, r.Identity, act)
	if err != nil {
		r.Logger.Warn("turn failed", "identity", r.Identity.String(), "err", err)
		return r.Handler.SystemOutput(ctx, fmt.Sprintf("Turn failed: %v", err))
	}
	return r.Handler.Output(ctx, replies)
}

func (r *Runner) user() domain.Account {
	return domain.Account{ID: r.Identity.UserID}
}

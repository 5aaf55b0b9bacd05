package runner

import (
	"log/slog"

	"github.com/aretw0/turnstile/pkg/domain"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithIdentity sets the conversation the console speaks for.
func WithIdentity(id domain.Identity) Option {
	return func(r *Runner) {
		r.Identity = id
	}
}

// WithBot sets the bot account used as the recipient of activities.
func WithBot(bot domain.Account) Option {
	return func(r *Runner) {
		r.Bot = bot
	}
}

// WithGreeting makes the runner announce the user with a membersAdded
// activity before reading input, the way channels do when a chat opens.
func WithGreeting(enabled bool) Option {
	return func(r *Runner) {
		r.Greet = enabled
	}
}

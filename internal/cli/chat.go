package cli

import (
	"context"
	"io"
	"os"

	"github.com/aretw0/turnstile/internal/presentation/tui"
	"github.com/aretw0/turnstile/pkg/domain"
	"github.com/aretw0/turnstile/pkg/runner"
)

// ChatOptions configures a console conversation.
type ChatOptions struct {
	In       io.Reader
	Out      io.Writer
	JSON     bool
	Plain    bool
	Greet    bool
	Identity domain.Identity
}

// RunChat runs a console conversation against the app's engine until EOF,
// /exit or an interrupt.
func RunChat(ctx context.Context, app *App, opts ChatOptions) error {
	in, out := opts.In, opts.Out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}

	var handler runner.IOHandler
	switch {
	case opts.JSON:
		handler = runner.NewJSONHandler(in, out)
	case opts.Plain:
		handler = runner.NewTextHandler(in, out)
	default:
		tui.PrintBanner(out)
		rr := tui.NewReplyRenderer(tui.NewRenderer(), app.Config.Engine.TraceReplies)
		handler = runner.NewTextHandler(in, out, runner.WithFormatter(rr.RenderAll))
	}

	id := opts.Identity
	if id == (domain.Identity{}) {
		id = runner.DefaultIdentity
	}

	r := runner.NewRunner(
		runner.WithLogger(app.Logger),
		runner.WithInputHandler(handler),
		runner.WithIdentity(id),
		runner.WithGreeting(opts.Greet),
	)
	return handleExecutionError(r.Run(ctx, app.Engine))
}

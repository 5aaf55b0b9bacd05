/*
Package runner implements the console transport for the Turnstile engine.

It reads one line per turn, wraps it in a message activity and prints the
replies through a pluggable IOHandler. It also provides the input sanitizer
shared by every transport.

# Key Components

  - Runner: The read-turn-print loop, stopped by EOF, "/exit" or an interrupt.
  - IOHandler: Decouples how replies are shown and input is read.
  - TextHandler: Interactive terminal usage.
  - JSONHandler: JSON-Lines for scripted usage.

# Usage

	r := runner.NewRunner(
		runner.WithIdentity(domain.Identity{ChannelID: "console", ConversationID: "local", UserID: "me"}),
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
		runner.WithGreeting(true),
	)

	if err := r.Run(ctx, engine); err != nil {
		log.Fatal(err)
	}
*/
package runner

/*
Package turnstile is a conversational turn engine for building multi-step bots.

A bot is a set of dialogs. Each dialog is an ordered list of steps (a
"waterfall"); a step either runs code or asks the user something and waits.
Turnstile receives one inbound activity at a time, works out where the
conversation left off, runs as many steps as it can and replies.

# Concept

Every participant of a conversation is identified by a channel, conversation
and user triple. Their progress is a stack of dialog frames, persisted by a
StateStore between turns. Each turn loads the stack, advances it and saves it
exactly once, so a crash or timeout never leaves a half-written conversation.
Turns of the same identity are serialized; different identities run
concurrently.

# Key Features

  - Waterfall dialogs with text, choice, confirm, number and activity prompts.
  - Validators with retry messages that leave the conversation where it was.
  - Child dialogs that hand a value back to their caller.
  - Optimistic concurrency on the stored stack, with memory, file, Redis and
    SQL backends sharing one conformance suite.
  - Lifecycle hooks and OpenTelemetry spans for every turn.

# Usage

	reg := registry.New().MustRegister(dialog)

	eng, err := turnstile.New(
		turnstile.WithRegistry(reg),
		turnstile.WithStore(file.New(".turnstile/conversations")),
		turnstile.WithTurnTimeout(5*time.Second),
	)
	if err != nil {
		log.Fatal(err)
	}

	replies, err := eng.ProcessTurn(ctx, identity, domain.NewMessage("hi"))

Transports (HTTP, MCP, Telegram and the terminal) live under pkg/adapters and
pkg/runner and only translate their wire format into activities and replies.
*/
package turnstile

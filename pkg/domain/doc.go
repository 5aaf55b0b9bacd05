/*
Package domain contains the core conversation models of the Turnstile engine.

It defines the entities a turn flows through: who is talking, what they said,
which dialog step is waiting for them and what the bot answers. This package is
kept pure and free of I/O or persistence, following Hexagonal Architecture
principles.

# Key Entities

  - Identity: The (channel, conversation, user) triple that owns a DialogStack.
  - Activity: A normalized inbound event (message, membersAdded, ...).
  - Reply: A normalized outbound record (message, typing, trace).
  - Dialog: An immutable, ordered list of Steps plus the Prompts they use.
  - Step: A tagged variant, either Plain (runs code) or Prompt (suspends for input).
  - StepResult: The explicit control transfer a step hands back to the engine loop.
  - DialogStack: The persisted per-identity stack of Frames.
*/
package domain

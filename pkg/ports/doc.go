/*
Package ports defines the driven ports (interfaces) of the Turnstile engine.

These interfaces decouple the turn pipeline from external implementations,
allowing the engine to work with various storage backends, dialog sources and
lock services.

# Key Interfaces

  - StateStore: Persists DialogStacks per Identity with optimistic concurrency.
  - DistributedLocker: Serializes turns of one identity across replicas.
  - DialogSource: Resolves dialog definitions by id (e.g. the registry).
  - TurnEngine: The driving port used by transports (HTTP, MCP, Telegram, console).
*/
package ports

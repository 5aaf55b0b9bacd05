/*
Package session implements per-identity serialization of conversation turns.

It guarantees that the load, advance and save of one identity never
interleave with another turn of the same identity, while turns of different
identities run fully concurrently. A DistributedLocker can be layered on top
of the in-process locks to coordinate several replicas sharing one store.
*/
package session

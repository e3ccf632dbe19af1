// Package store defines the boundary to the external object and state store
// and provides two implementations of it.
//
// The engine reads observations with GetState, forces expired values with
// SetState, discovers already-configured objects with EnumerateWatchable and
// learns about changes through SubscribeObjects and SubscribeStates.
//
// # Notification Delivery
//
// Change notifications are delivered asynchronously, in publication order, on
// a single dispatcher goroutine. A Store method never calls a subscriber
// before returning, so a subscriber may call back into the store (or take
// locks held around store calls) without deadlocking.
//
// # Implementations
//
//   - MemoryStore keeps everything in process and can be saved to and
//     restored from a persistence.Snapshot.
//   - SQLiteStore keeps objects and states in a SQLite database.
package store

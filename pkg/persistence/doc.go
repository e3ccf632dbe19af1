// Package persistence saves and restores the contents of the in-memory
// object and state store.
//
// A snapshot holds object definitions and their last observed states as
// indented JSON. It lets a stand-alone daemon keep its watched objects across
// restarts. Expiration timers are never persisted: after a restart every
// watched key is re-evaluated from its stored observation timestamp.
package persistence

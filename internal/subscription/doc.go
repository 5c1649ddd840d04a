// Package subscription persists standing watch requests.
//
// A Subscription records a day or a single train the user asked the bot to
// re-check later. Stores are plain key/value collaborators: Put returns the
// key the value was written under, Delete returns the key it removed and
// List returns everything.
//
// # Backends
//
//   - BadgerStore: embedded LSM key/value store, the default
//   - SQLiteStore: single-table SQLite database for operators who prefer SQL
//   - MemoryStore: in-process map for tests and dry runs
package subscription

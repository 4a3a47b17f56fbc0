// Package contentrepo coordinates the lifecycle of content entities: store
// (create or update), remove and recover.
//
// The package holds no state of its own. Storage, access control, locking,
// versioning, history, search indexing, publication and the recycle bin are
// collaborators injected through the interfaces in interfaces.go; memory and
// Postgres implementations live in subpackages.
//
// Ordering
//
// Every workflow checks all of its preconditions (authorization, existence,
// emptiness, locks, change detection) before the first mutation. After that
// the steps run in a fixed order without a shared transaction: a failure part
// way leaves earlier steps in place. Removal retracts the search index and
// publication state before deleting the repository record.
package contentrepo

// Package store defines the storage collaborator used by the metadata
// engines.
//
// A Store persists attribute documents, each linked to exactly one owner
// through a polymorphic (type, id) reference. Every operation is scoped to
// that owner: a document is never visible through another owner's reference.
//
// Backends live in subpackages:
//   - sqlite: SQLite file database with a native containment query
//   - memory: process-local maps, no native containment query
//   - dynamo: Amazon DynamoDB table, no native containment query
//
// # Error Contract
//
//   - ErrNotFound: Find on a missing document
//   - ErrCapabilityUnsupported: QueryContains on a backend that cannot
//     express it; callers fall back to scanning FindAllByOwner
//   - anything else is a store failure and is returned to the caller
package store

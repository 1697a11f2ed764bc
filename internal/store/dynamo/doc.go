// Package dynamo stores attribute documents in an Amazon DynamoDB table.
//
// # Table Layout
//
// One item per document, keyed by id (S). owner_ref is "type#id".
//
// Each owner also has an index item, keyed "owner#" + owner_ref, whose
// doc_ids string set lists the owner's documents. Every create and delete
// updates it in the same transaction as the document, and reads of it and of
// the documents are consistent, so FindAllByOwner and Exists see every
// completed write. Documents are returned in creation order by sorting on
// created_at, then id.
//
// The payload is kept as a JSON string attribute, preserving key order and
// the integer/float distinction. A cleared payload has no payload attribute.
//
// # Limitations
//
//   - QueryContains is unsupported; search falls back to scanning an owner's
//     documents
//   - the index item is bounded by the 400 KB item size, roughly ten
//     thousand documents per owner
//   - a CreateMany larger than one transaction commits in steps; a failed
//     step deletes the documents of the steps before it
//   - DeleteAllByOwner deletes document by document and is not atomic
//   - document ids starting with "owner#" are reserved
package dynamo

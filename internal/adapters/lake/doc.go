// Package lake is the object storage sink adapter
//
// Writer persists opaque payloads into one bucket of an S3 compatible store,
// optionally through a custom endpoint for non AWS backends. Writes are whole
// object puts, so re-ingesting a key overwrites the previous object in place.
package lake

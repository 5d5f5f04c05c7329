// Package gharchive is the archive source adapter
//
// It owns the archive's naming convention (HourRef, hour file names, source
// URLs) and two collectors: a plain HTTP collector that streams payloads
// straight off the wire, and a disk backed one that caches hours locally with
// conditional revalidation for recent hours plus optional age and size
// retention. Payloads stay opaque gzip bytes end to end; nothing here decodes
// the archive contents.
package gharchive

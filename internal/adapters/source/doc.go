// Package source obtains revisions of a published document: over HTTP with
// conditional requests, from a local file, or from the on-disk archive of
// every revision seen so far
package source

// Package git drives the release operations on a local GeoWebCache checkout:
// checkout, fetch, hard reset, staging, commits, annotated tags, reverts and pushes.
//
// All operations run in-process through go-git and are synchronous. Nothing is
// retried; a failed push or fetch is reported to the operator as is.
package git

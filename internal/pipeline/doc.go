// Package pipeline runs release commands in the order given on the command
// line.
//
// The Executor plans the whole list before anything runs, then executes one
// command at a time. Each command checks its required options when it starts,
// so values recorded by an earlier command (update records release_commit for
// tag) count. The first failure skips the rest of the list. Observers receive
// started, completed, failed, skipped and finished events for logging, the run
// journal, NATS notifications and metrics.
package pipeline

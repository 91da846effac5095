// Package progress publishes the progress of a crawl session as a JSON
// snapshot file that external monitors can poll.
//
// The snapshot is replaced atomically on every update, so a reader never
// observes a partially written file. The item counter only grows, and the
// final snapshot always carries a terminal status (FINISHED or FAILED).
package progress

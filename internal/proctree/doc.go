// Package proctree terminates the descendants of a process without
// touching the process itself.
//
// This is the distinction between "stop the running command" and
// "kill the shell": the controller snapshots the OS process table,
// builds a parent→children view, and walks breadth-first from the
// root's children with the root pre-seeded into the visited set. The
// traversal is iterative (explicit queue) so deep trees cannot
// overflow the stack, and the exclude-root invariant is a single
// testable filter.
//
// The package also owns the interrupt debounce policy: one interrupt
// is cooperative (a soft byte on the terminal stream), a repeat within
// the window escalates to a descendant kill.
package proctree

// Package pty wraps a spawned process behind a pseudo-terminal device.
//
// A Session moves through Spawning → Running → Exited. One dedicated
// goroutine drains the PTY master and is the only reader for the
// session; output produced before a consumer attaches is buffered and
// replayed in order once Subscribe is called, so no bytes are lost in
// the window between spawn and attachment.
//
// Writes fail with ErrSessionDead once the process has exited; resizes
// on a dead session are silently ignored. Exit detection runs on a
// dedicated wait goroutine and surfaces a nullable exit code.
package pty

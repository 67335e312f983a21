// Package shutdown runs cleanup hooks when the process is interrupted.
//
// Hooks run in reverse registration order under a shared timeout, so the
// last resource opened is the first closed.
package shutdown

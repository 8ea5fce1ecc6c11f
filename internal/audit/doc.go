// Package audit carries login, refresh and access-decision records from the engine
// to an operator-chosen [Sink].
//
// A [Dispatcher] owns one goroutine and one bounded queue. With DropIfFull set, a
// full queue costs the event and bumps [Dispatcher.Dropped]; otherwise Emit waits for
// space or for the caller's context. Close flushes the queue before returning.
//
// Events never hold tokens, passwords or the signing key. The engine picks which
// events to emit; this package does not import it.
package audit

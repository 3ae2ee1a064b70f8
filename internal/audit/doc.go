// Package audit buffers security events from the engine and hands them to a
// Sink on a single background goroutine.
//
// Sinks: [NoOpSink], [ChannelSink] for tests, [JSONWriterSink] for line
// delimited files and [SlogSink] for the process logger.
//
// # What this package must NOT do
//
//   - Decide which events exist. The engine owns the event vocabulary.
//   - Import authcore or any sibling internal package.
//   - Block the caller on sink I/O when DropIfFull is set.
package audit

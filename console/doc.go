// Package console provides the output sinks a heartbeat loop writes to.
//
// Every sink implements heartbeat.LineWriter structurally: WriteLine takes
// the line without its terminator and appends "\n" itself. Sinks are:
//
//   - StreamWriter: an io.Writer such as stdout (the serial console)
//   - BusWriter: publishes to console.<deviceID> on a bus.MessageBus
//   - WebSocketWriter: sends each line as a text frame to an observer
//   - Recorder: in-memory collector with receive timestamps
//   - MultiWriter: fan-out to several sinks
package console

// Package bus carries console lines from a device to remote observers.
//
// # Overview
//
// A device's heartbeat loop can publish each console line to the subject
// console.<device-id>. Observers (see heartbeat.BusMonitor and the
// espcsi-monitor command) subscribe to that subject and track liveness.
//
// # Available Implementations
//
//   - NATSBus: remote observers over NATS
//   - MemoryBus: single-process use and tests
//
// # Usage
//
//	b := bus.NewMemoryBus(bus.DefaultConfig())
//	sub, _ := b.Subscribe(bus.ConsoleSubject("esp-1"))
//	b.Publish(bus.ConsoleSubject("esp-1"), []byte("Running...\n"))
//	msg := <-sub.Messages()
package bus

// Package heartbeat implements the device liveness loop and its observer.
//
// # Overview
//
// On start the loop writes a one-time banner to its console sink, then
// forever sleeps for a fixed interval and writes a status line:
//
//	ESP-CSI project started!
//	Running...
//	Running...
//	...
//
// The loop has two states. STARTING is transient and emits the banner.
// HEARTBEAT self-loops on sleep → emit and never exits on its own.
//
// # Ticks
//
// The interval is quantized to the host tick period before sleeping.
// ToTicks rounds to the nearest tick (half up) and never returns zero
// for a positive duration, so every iteration yields.
//
// # Usage
//
// Device side:
//
//	loop, _ := heartbeat.NewLoop(heartbeat.DefaultConfig(),
//	    console.NewStreamWriter(os.Stdout), heartbeat.RealSleeper{}, logger)
//	loop.Start(ctx) // fire and forget
//
// Observer side:
//
//	mon, _ := heartbeat.NewBusMonitor(heartbeat.MonitorConfig{Bus: b})
//	mon.OnDead(func(id string) { log.Printf("%s went quiet", id) })
//	lines, _ := mon.Watch("esp-1")
//
// Sinks and sleepers are injected so tests can record output and
// fast-forward time.
package heartbeat

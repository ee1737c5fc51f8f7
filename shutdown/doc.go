// Package shutdown runs the host-reset path of a device process.
//
// The heartbeat loop never stops on its own. When the process receives
// SIGINT or SIGTERM, the Coordinator runs registered handlers in phase
// order, lowest first:
//
//	PhaseLoop  (10)  cancel the heartbeat loop's context
//	PhaseSinks (20)  close console sinks
//	PhaseBus   (30)  drain and close the message bus
//
// Handlers in the same phase run concurrently. Every handler receives a
// context bounded by Config.Timeout.
//
//	coord := shutdown.NewCoordinator(shutdown.DefaultConfig())
//	coord.RegisterFunc("loop", shutdown.PhaseLoop, func(ctx context.Context) error {
//	    cancel()
//	    return loop.Wait()
//	})
//	coord.HandleSignals()
//	<-coord.Done()
package shutdown

// Package shutdown releases process resources in phases when the CLI exits
// or receives SIGINT/SIGTERM.
//
// Lower phases run first; handlers within a phase run concurrently. The
// vector index and keyword index close in PhaseStores, before the trace
// exporter flushes in PhaseTelemetry, so spans from the final writes are
// still exported.
//
//	coord := shutdown.NewCoordinator(shutdown.DefaultConfig())
//	coord.RegisterFunc("kit", shutdown.PhaseStores, func(ctx context.Context) error {
//	    return k.Close()
//	})
//	coord.RegisterFunc("telemetry", shutdown.PhaseTelemetry, provider.Shutdown)
//	ctx := coord.HandleSignals(context.Background())
//	defer coord.ShutdownWithTimeout(0)
package shutdown

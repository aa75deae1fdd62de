// Package profile adds runtime profiling to CLI applications through
// command-line flags: CPU, heap, allocs, goroutine, block, and mutex
// profiles.
//
// Typical usage creates a [Config], registers flags, then wraps the
// command's work in a [Profiler]:
//
//	cfg := profile.NewConfig()
//	cfg.RegisterFlags(rootCmd.Flags())
//
//	p := cfg.NewProfiler()
//	err := p.Start()
//	// ... run the command ...
//	stopErr := p.Stop()
//
// Users then enable profiling with flags like --cpu-profile=cpu.prof.
package profile

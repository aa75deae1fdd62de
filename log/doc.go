// Package log builds [log/slog] handlers from CLI configuration and fans
// log output out to multiple consumers.
//
// Typical usage creates a [Config], registers flags, then builds a handler
// at startup:
//
//	cfg := log.NewConfig()
//	cfg.RegisterFlags(rootCmd.Flags())
//
//	handler, err := cfg.NewHandler(os.Stderr)
//	slog.SetDefault(slog.New(handler))
//
// A [Publisher] decouples log producers from consumers: the schema
// pipeline's warnings are written once and every [Subscription] receives
// its own copy, so the CLI streams them to stderr while tests assert on
// the same records.
package log

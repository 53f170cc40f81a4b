// Package logging wraps zap for ensemble's structured logging.
//
// The Logger adds a Trace level below Debug for per-attempt process
// chatter, level methods that take a context.Context and stamp the
// run, session, and agent correlation fields stored in it, a redacting
// encoder that blanks secret-bearing field names and value patterns
// before anything reaches an output, and level-aware sampling that
// never drops Error entries.
//
// Outputs are stdout (JSON or console format) plus an optional
// append-only JSON file. Typical wiring:
//
//	cfg := logging.NewDefaultConfig()
//	cfg.Level = logging.TraceLevel
//	logger, err := logging.NewLogger(cfg)
//	if err != nil {
//		return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithRunID(ctx, runID)
//	ctx = logging.WithAgent(ctx, "claude")
//	logger.Info(ctx, "step completed", zap.Duration("took", d))
//
// Secrets travel as config.Secret and are logged through the Secret
// field helper; the encoder's field-name and pattern rules are the
// backstop for anything that slips past call sites.
//
// Tests use NewTestLogger, which captures entries in memory down to
// Trace and offers AssertLogged, AssertField, AssertRunCorrelation,
// and AssertNoSecrets helpers.
package logging

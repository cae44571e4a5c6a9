// Package logging wraps zap for focusfuel.
//
// A Logger writes JSON or console lines to stdout (stderr when stdout
// carries a protocol, as in MCP mode) and, when OpenTelemetry logging is
// on, to the otelzap bridge as well. Every call takes a context; trace,
// tab, session and request ids found there are added as fields. Secrets
// are redacted in the encoder by field name and by value pattern.
//
// Sampling (100 per second, then every tenth) applies below Error only:
//
//	logging:
//	  level: debug
//	  sampling: true
//
// A typical call:
//
//	ctx = logging.WithTabID(ctx, 7)
//	logger.Warn(ctx, "ai stage failed, using heuristic result", zap.Error(err))
//
//	{"level":"warn","msg":"ai stage failed, using heuristic result","tab.id":7,"error":"context deadline exceeded"}
//
// TestLogger records entries in memory:
//
//	tl := logging.NewTestLogger()
//	p := classifier.New(lists, cfg, classifier.WithLogger(tl.Logger))
//	tl.AssertLogged(t, zapcore.WarnLevel, "ai stage failed")
package logging

// Package log is the structured logging layer of polkaclient.
//
// Components receive a Logger when they are built and never reach for a
// package level logger. Anything that wants quiet output passes a
// NoopLogger, and anything that wants entries in a trace passes a context
// carrying a span.
//
// # The Logger interface
//
// Every implementation satisfies:
//
//	type Logger interface {
//	    Debug(msg string, keysAndValues ...any)
//	    Info(msg string, keysAndValues ...any)
//	    Warn(msg string, keysAndValues ...any)
//	    Error(msg string, keysAndValues ...any)
//	    Fatal(msg string, keysAndValues ...any)
//	    WithKV(key string, value any) Logger
//	    GetAllKV() []any
//	    WithName(name string) Logger
//	    Name() string
//	    AddCallerSkip(skip int) Logger
//	}
//
// The implementations are:
//
//   - ZapLogger writes console, logfmt or json entries through zap.
//   - NoopLogger drops everything. Components fall back to it when no
//     logger is configured.
//   - SpanLogger decorates another Logger and mirrors each entry into an
//     OpenTelemetry span.
//
// # Building a logger
//
// A ZapLogger is built from a Config, usually the Log section of the rpc
// client configuration:
//
//	lg := log.NewZapLogger(log.Config{
//	    Format: "logfmt",
//	    Level:  log.LevelDebug,
//	    Output: "stderr",
//	})
//	lg.Info("client starting", "endpoint", "wss://rpc.polkadot.io")
//
// Output may also be a file path. Missing directories are created, and
// when the file cannot be opened the logger writes to stderr. Extra
// zapcore.WriteSyncer values passed to NewZapLogger receive a copy of
// every entry, which is how tests capture output.
//
// # Key value pairs
//
// Every method takes alternating keys and values after the message:
//
//	lg.Debug("sending request",
//	    "id", id,
//	    "method", "chain_getBlockHash",
//	)
//
// Keys are strings. The SpanLogger turns pairs into span attributes; a key
// without a value is stored with a placeholder value, and a pair whose key
// is not a string stops the conversion.
//
// # Names and persistent pairs
//
// Derived loggers carry a dotted name and pairs that repeat on every entry:
//
//	clientLg := lg.WithName("rpc-client")      // logger=rpc-client
//	sessLg := clientLg.WithKV("session", sid)  // session=<sid> on each line
//	subLg := sessLg.WithName("subscriptions")  // logger=rpc-client.subscriptions
//
// GetAllKV returns the pairs added so far, which lets a decorator rebuild
// an equivalent logger.
//
// # Context and tracing
//
// The rpc client stores the session logger in the context of each call:
//
//	ctx, span := tracer.Start(ctx, "rpc.call state_getStorage")
//	defer span.End()
//	ctx = log.SetContextLogger(ctx, lg)
//	log.FromContext(ctx).Debug("sending request", "id", 7)
//
// When the context carries a valid span, SetContextLogger wraps the logger
// in a SpanLogger. Entries then become span events, and the lines written
// by the wrapped logger gain traceId and spanId. Error and Fatal entries
// also set the span status to error. FromContext returns a NoopLogger for
// a context without a logger.
//
// # Caller frames
//
// Helpers that log on behalf of their caller should skip their own frame
// so the reported source line is the caller's:
//
//	func logDropped(lg log.Logger, err error) {
//	    lg.AddCallerSkip(1).Warn("dropping malformed frame", "error", err)
//	}
//
// # Levels and environment
//
// Levels are debug, info, warn, error and fatal. Fatal on a ZapLogger exits
// the process after writing; on a NoopLogger it does nothing.
//
// When Config is loaded with cleanenv these variables fill it:
//
//   - POLKA_LOG_FORMAT: console, logfmt or json (default console)
//   - POLKA_LOG_LEVEL: minimum level (default info)
//   - POLKA_LOG_OUTPUT: stderr, stdout or a file path (default stderr)
package log

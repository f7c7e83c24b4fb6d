// Package logging builds the process logger on log/slog.
//
// # Overview
//
//   - JSON, text and console formats at a configurable level
//   - Output to stdout or to a size-rotated file (lumberjack)
//   - Request and trace ids taken from the context of *Context log calls
//   - Secret query parameters masked in URL-valued attributes
//
// # Usage
//
//	logger, closer, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging))
//	if err != nil {
//	    return err
//	}
//	defer closer.Close()
//	slog.SetDefault(logger)
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	logger.InfoContext(ctx, "fallback shown", "path", "/old/page?token=abc")
//	// ... request_id=req-123 path="/old/page?token=***"
package logging

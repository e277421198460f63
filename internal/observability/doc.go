// Package observability provides logging and metrics support for the
// InspireHEP RSS service.
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("request_id", reqID).Msg("feed requested")
//
// Add request context to a logger:
//
//	logger = observability.WithRequestContext(logger, requestID, r.Method, r.URL.Path)
//
// # Metrics
//
//	metrics := observability.NewMetrics("inspire_rss")
//	metrics.RecordUpstreamRequest(elapsed.Seconds(), len(hits))
//	metrics.RecordFeedRendered(len(items))
//
// # Context Helpers
//
//	ctx = observability.WithRequestID(ctx, requestID)
//	reqID := observability.RequestIDFromContext(ctx)
//
// # Standard Fields
//
//   - request_id: inbound request identifier
//   - correlation_id: X-Correlation-ID header value
//   - url: upstream request URL
//   - total: total hits reported by the upstream API
//   - items: number of items in a rendered feed
//   - source: upstream API name
package observability

// Package observability provides logging, metrics, and context helpers for
// the impact dashboard.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for loads, source requests, and widget renders
//   - Context helpers for propagating request and session identifiers
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
//	logger.Info().Str("session_id", sessionID).Msg("dashboard load started")
//
// # Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics("impact_dashboard")
//
// Record metrics:
//
//	metrics.RecordLoadStarted()
//	metrics.RecordSourceRequest("dimensions", "search", 0.42)
//
// # Context Helpers
//
// Store and retrieve request context:
//
//	ctx = observability.WithRequestID(ctx, requestID)
//	ctx = observability.WithSessionID(ctx, sessionID)
//
//	reqID := observability.RequestIDFromContext(ctx)
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability

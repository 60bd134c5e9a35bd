// Package observability provides logging, metrics, and tracing support for
// the convention service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for conventions, outbox events and the crawler
//   - Context helpers for propagating observability data
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:     "info",
//	    Format:    "json",
//	    Output:    "stdout",
//	    AddSource: true,
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("convention_id", id).Msg("convention submitted")
//
// Add convention context to logger:
//
//	logger = observability.WithConventionContext(logger, conventionID, agencyID)
//
// # Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics("convention_service")
//
// Record metrics:
//
//	metrics.RecordConventionSubmitted()
//	metrics.RecordEventPublication("application.submitted", true)
//
// # Context Helpers
//
// Store and retrieve request context:
//
//	ctx = observability.WithRequestID(ctx, requestID)
//	ctx = observability.WithActorRole(ctx, role)
//
//	reqID := observability.RequestIDFromContext(ctx)
//	role := observability.ActorRoleFromContext(ctx)
//
// # Standard Fields
//
// Common fields used across the service:
//
//   - request_id: HTTP request identifier
//   - convention_id: Convention identifier
//   - agency_id: Oversight agency identifier
//   - topic: Domain event topic
//   - event_id: Domain event identifier
//   - subscription_id: Event bus subscription name
//   - role: Authenticated actor role
//   - trace_id: Distributed trace identifier
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability

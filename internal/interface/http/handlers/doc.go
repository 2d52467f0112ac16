// Package handlers contains HTTP building blocks shared by the API server:
// health checks, learner identity extraction and reusable middleware.
//
// # Health Checks
//
// The HealthChecker interface allows registering multiple named health checks
// that are executed in parallel:
//
//	checker := handlers.NewCompositeHealthChecker("v1.0.0")
//	checker.AddOptionalCheck("storage", handlers.NewStorageCheck(repo))
//
//	status := checker.Check(ctx)
//	if !status.Healthy {
//	    log.Warn("health check failed", logger.String("reason", status.Message))
//	}
//
// Optional checks make /health report a failure while /ready stays green.
//
// # Middleware
//
//	r.Use(handlers.SecurityHeadersMiddleware)
//	r.Use(handlers.RequestSizeLimitMiddleware(64 << 10))
//	r.Use(handlers.SimulatedLatencyMiddleware(300 * time.Millisecond))
package handlers

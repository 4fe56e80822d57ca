package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// timingMiddleware records per-route latency into the Prometheus
// histogram. Uses the route pattern, not the raw path, to keep
// cardinality bounded.
func (s *Server) timingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		route := c.Route().Path
		if route == "" {
			route = "unmatched"
		}
		s.metrics.ObserveRequest(route, time.Since(start))

		return err
	}
}

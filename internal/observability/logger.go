// Package observability exposes the BLink Prometheus metrics.
package observability

import "github.com/blinkbus/blink-go/internal/logger"

// Package-level cached logger instance.
var log = logger.Global().Module("metrics")

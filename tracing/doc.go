// Package tracing wraps OpenTelemetry so that service operations can open
// and close spans without importing the SDK directly.
package tracing

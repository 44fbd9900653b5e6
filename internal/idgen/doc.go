// Package idgen generates request, audit and event identifiers. Callers
// treat identifiers as opaque strings; tests may replace NewFunc.
package idgen

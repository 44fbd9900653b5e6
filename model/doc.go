// Package model contains the in-memory representation of approval flow
// definitions and the per-submission request state tracked by the engine.
//
// Flows and steps are configuration and are read-only from the engine's
// perspective. A Request is created on submission and only ever replaced by
// a new snapshot produced by an engine transition; audit entries are append
// only.
package model

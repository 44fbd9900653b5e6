// Package signoff provides a multi-level approval workflow engine.
//
// A Flow is an ordered chain of approval steps configured for an action
// type. Submitting a subject creates a Request that walks the chain: every
// level is satisfied by one (ANY) or every (ALL) remaining approver, and
// approvers may be rerouted or removed while the request is in flight.
//
// The Service façade persists every transition atomically with its audit
// entries, retries optimistic conflicts and publishes notifications once
// the state is committed:
//
//	srv, _ := signoff.New()
//	_ = srv.LoadFlows(ctx, "file:///etc/signoff/flows")
//	req, _ := srv.Submit(ctx, &model.Submission{...})
//	req, _ = srv.Approve(ctx, req.ID, "10", "looks good")
//
// Sub-packages:
//
//   - engine     – stateless approval state machine
//   - condition  – pluggable "requires approval" evaluators
//   - service    – flow repositories, request stores and notifications
package signoff

// Package upload implements the select / preview / submit / result state
// machine behind the golf ball detection form.
//
// # State Machine
//
//	Empty ──select──▶ Selected ──submit──▶ Submitting ──▶ Succeeded
//	                                                   └─▶ Failed
//
// SelectFile re-enters Selected from any state and Reset re-enters Empty
// from any state. Invariants kept by every transition:
//   - ResultDataURI is cleared whenever a file is selected or on Reset.
//   - ErrorMessage and ResultDataURI are never both set.
//   - Loading is true only between the start of Submit and its return.
//
// # Single Flight
//
// At most one Submit runs at a time. A second call while one is in flight
// fails fast with ErrSubmitInFlight rather than queueing.
//
// # Stale Outcomes
//
// Each selection starts a new generation. A preview decode or submit that
// finishes after SelectFile or Reset has moved the generation on is
// discarded, so an old response can never overwrite newer state. Reset and
// SelectFile also cancel the in-flight request's context.
//
// # Results
//
// The result is always labelled image/jpeg: the detection service encodes
// its annotated output as JPEG whatever the input was, and the base64
// payload is used verbatim.
package upload

// Package detect is the HTTP client for the external golf ball detection
// service.
//
// The service exposes a single inference endpoint:
//
//	POST {base_url}/detect/
//	Content-Type: multipart/form-data (one part named "file")
//
// A successful call answers 200 with
//
//	{"success": true, "image": "<base64 JPEG>", "detections": [...]}
//
// and a failed one answers a non-2xx status with
//
//	{"success": false, "error": "<message>"}
//
// # Error Handling
//
// Detect distinguishes two failure classes:
//   - *ServiceError: the service answered with a non-2xx status. Message
//     carries the body's "error" field verbatim, or "" if it had none.
//   - *TransportError: no usable answer (network failure, cancelled
//     context, body that is not JSON).
//
// A 2xx answer with "success": false is not an error at this layer; the
// caller inspects Response.Success.
//
// The client applies no retry policy and, unless WithTimeout is given, no
// timeout.
package detect

// Package server implements the HTTP transport for the blueprint parser.
//
// Every request handler is a producer: it decodes the upload, submits a
// blueprint.Request to the shared queue.Queue and waits on the job. A single
// queue.Runner elsewhere in the process is the only consumer, so handlers
// never run the pipeline themselves.
//
// # Routes
//
//   - POST /parseBlueprint: parse an uploaded image and answer with the mask
//   - GET /status: liveness check, answers "Server is running"
//   - GET /blueprints/{id}: the stored upload for a finished job
//   - GET /blueprints/{id}/color: the stored average colour
//   - POST /blueprints/{id}/parse: parse a stored upload again
//   - DELETE /blueprints/{id}: remove a stored upload
//
// The /blueprints routes answer 404 when storage is disabled. Any other path
// answers 404 with the body "404 - Not Found".
//
// # Parameters
//
// The parse routes read threshold, erodeIterations, dilateIterations and
// format from the query string or form fields. Omitted parameters fall back
// to the pipeline section of the current configuration, which SetConfig can
// swap while the server is running.
//
// # Status codes
//
//   - 400: malformed parameter or a request the pipeline rejects
//   - 413: body larger than server.max_upload_bytes
//   - 415: body is not a decodable image
//   - 500: the job failed while running
//   - 503: the queue is closed for shutdown
package server

// Package middleware contains HTTP middleware for the Fiber application.
//
// # Components
//
//   - auth: API key validation for the /api routes.
//   - rayid: a request id (ray id) stored in fiber locals and echoed in the
//     X-Ray-ID response header, picked up by logger.WithRayID.
package middleware

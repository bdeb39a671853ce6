// Package report serves the archived sync run reports.
//
// # HTTP Endpoints
//
//   - GET /reports : Lists archived reports, newest first (supports ?limit).
//   - GET /reports/* : Returns one report by object key.
package report

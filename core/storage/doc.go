// Package storage provides the object storage layer used to archive run reports.
//
// It wraps the MinIO Go client behind the Client interface (mocked in
// core/storage/mocks), which works against both AWS S3 and self-hosted MinIO.
//
// # Archiver
//
// Archiver writes each run report as a JSON object under
// <prefix>/YYYY/MM/DD/, lists them newest first, loads one back for the report
// API, and prunes objects past the retention window.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	archiver := storage.NewArchiver(client, cfg.Storage)
//	err = archiver.Save(ctx, archiver.ReportKey(report.StartedAt, "sync sites", report.RunID), report)
package storage

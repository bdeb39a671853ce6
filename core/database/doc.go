// Package database handles the mapping store connection and schema inspection.
//
// Connect opens a GORM connection for the configured driver. Postgres is the
// production target; MySQL and SQLite are supported for local runs and tests.
//
// # Schema Inspection
//
// GetTableColumns reads live column definitions per dialect, and
// FindMissingColumns compares them with the columns the mapping profiles write.
// The `check schema` command is built on them; vysync never creates or
// migrates tables itself.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    return err
//	}
//
//	missing, err := database.FindMissingColumns(db, expected)
package database

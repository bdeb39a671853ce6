package database

import (
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
)

// ColumnInfo describes one live column.
type ColumnInfo struct {
	Field string
	Type  string
	Null  string
}

// GetTableColumns retrieves the column definitions for a given table.
// A missing table yields no columns and no error.
func GetTableColumns(db *gorm.DB, tableName string) ([]ColumnInfo, error) {
	var columns []ColumnInfo

	switch db.Dialector.Name() {
	case "sqlite":
		type sqliteColumn struct {
			Cid     int
			Name    string
			Type    string
			Notnull int
		}
		var rows []sqliteColumn
		if err := db.Raw(fmt.Sprintf("PRAGMA table_info('%s')", tableName)).Scan(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
		}
		for _, col := range rows {
			null := "YES"
			if col.Notnull == 1 {
				null = "NO"
			}
			columns = append(columns, ColumnInfo{Field: col.Name, Type: col.Type, Null: null})
		}

	case "mysql":
		err := db.Raw(`SELECT column_name AS field, column_type AS type, is_nullable AS "null"
			FROM information_schema.columns
			WHERE table_schema = DATABASE() AND table_name = ?
			ORDER BY ordinal_position`, tableName).Scan(&columns).Error
		if err != nil {
			return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
		}

	default:
		err := db.Raw(`SELECT column_name AS field, data_type AS type, is_nullable AS "null"
			FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = ?
			ORDER BY ordinal_position`, tableName).Scan(&columns).Error
		if err != nil {
			return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
		}
	}

	for i := range columns {
		columns[i].Field = strings.ToLower(columns[i].Field)
		columns[i].Type = strings.ToLower(columns[i].Type)
	}
	return columns, nil
}

// MissingColumn is an expected column absent from the live schema.
type MissingColumn struct {
	Table  string
	Column string
}

// FindMissingColumns compares expected columns per table with the live schema.
// A table that does not exist reports all of its columns missing.
func FindMissingColumns(db *gorm.DB, expected map[string][]string) ([]MissingColumn, error) {
	var missing []MissingColumn
	for _, table := range sortedKeys(expected) {
		cols, err := GetTableColumns(db, table)
		if err != nil {
			return nil, err
		}
		live := make(map[string]struct{}, len(cols))
		for _, c := range cols {
			live[c.Field] = struct{}{}
		}
		for _, name := range expected[table] {
			if _, ok := live[strings.ToLower(name)]; !ok {
				missing = append(missing, MissingColumn{Table: table, Column: name})
			}
		}
	}
	return missing, nil
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

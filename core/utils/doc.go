// Package utils provides common utility functions for vysync.
// It includes loose-type conversion helpers for raw API payloads and database rows,
// and other shared logic that doesn't fit into domain-specific packages.
package utils

// Package db embeds the database schema.
package db

import _ "embed"

// Schema creates every table, index and the order change trigger. It is
// idempotent and runs on every start.
//
//go:embed migrations/001_schema.sql
var Schema string

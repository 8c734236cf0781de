// Package db holds the DDL for the extraction_results store.
package db

import _ "embed"

// SQLite is applied on every open of an SQLite store.
//
//go:embed sqlite.sql
var SQLite string

// Postgres is applied on every open of a PostgreSQL store.
//
//go:embed postgres.sql
var Postgres string

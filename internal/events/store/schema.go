package store

import _ "embed"

// Schema is the DDL for the durable event log, applied by migrations in
// deployment and directly by integration tests.
//
//go:embed schema.sql
var Schema string

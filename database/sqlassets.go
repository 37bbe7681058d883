package sqlassets

import _ "embed"

//go:embed schema/postgres/001_core.sql
var PostgresCoreSQL string

//go:embed schema/sqlite/001_core.sql
var SQLiteCoreSQL string

// migrations встраивает SQL-миграции схемы в бинарник.
package migrations

import "embed"

// FS содержит миграции goose в формате NNNNN_name.sql.
//
//go:embed *.sql
var FS embed.FS

package migrations

import "embed"

// FS goose-миграции схемы, вшиваются в бинарник.
//
//go:embed *.sql
var FS embed.FS

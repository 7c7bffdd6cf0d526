// Package migrations embeds the schema so goose can apply it at server start
// and from cmd/migrate without a migrations directory on disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

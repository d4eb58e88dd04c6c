// Package migrations embeds the ordered SQL schema files.
package migrations

import "embed"

// FS holds every *.sql file in lexical apply order.
//
//go:embed *.sql
var FS embed.FS

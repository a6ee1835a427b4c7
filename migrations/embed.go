// Package migrations embeds the SQL schema for the media metadata store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

// Package migrations embeds the store's forward-only SQL migration set so
// golang-migrate can apply it without reading from disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

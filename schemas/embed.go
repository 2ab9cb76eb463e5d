// Package schemas holds the JSON Schema documents for API and CLI request payloads.
package schemas

import "embed"

// FS contains every *.schema.json file in this directory
//
//go:embed *.schema.json
var FS embed.FS

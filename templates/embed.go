// Package templates embeds the default configuration written by cback init.
package templates

import "embed"

//go:embed cback.yaml
var FS embed.FS

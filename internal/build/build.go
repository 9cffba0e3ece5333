// Package build carries version metadata stamped in at link time.
package build

import "strings"

var (
	Version = "dev"
	AppName = "etl-engine"
	Slug    = ""
)

func init() {
	if Slug == "" {
		Slug = strings.ToLower(AppName)
	}
}

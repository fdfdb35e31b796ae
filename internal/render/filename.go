package render

import (
	"regexp"
	"strings"
	"time"
)

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

// placeholderClient stands in for a blank client name in filenames.
const placeholderClient = "CLIENTNAME"

// Filename returns "appraisal_<client>_<YYYY-MM-DD>.html". The client name
// is trimmed and each character outside [A-Za-z0-9] becomes "_". The date
// is at's UTC date. Consumers depend on this pattern.
func Filename(client string, at time.Time) string {
	name := nonAlnum.ReplaceAllString(strings.TrimSpace(client), "_")
	if name == "" {
		name = placeholderClient
	}
	return "appraisal_" + name + "_" + at.UTC().Format("2006-01-02") + ".html"
}

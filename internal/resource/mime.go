package resource

import "strings"

// MIMEType maps a name suffix to a content type.
type MIMEType struct {
	Suffix string `toml:"suffix"`
	Type   string `toml:"type"`
}

// MIMETable is matched in order; the first suffix that matches wins.
type MIMETable []MIMEType

// DefaultMIMETypes is used when the configuration lists none.
var DefaultMIMETypes = MIMETable{
	{".gif", "image/gif"},
	{".jpeg", "image/jpeg"},
	{".png", "image/png"},
	{".tiff", "image/tiff"},
	{".pdf", "application/pdf"},
	{".webm", "video/webm"},
	{".txt", "text/plain"},
	{".html", "text/html"},
}

// Lookup returns the content type for name, if any suffix matches.
func (t MIMETable) Lookup(name string) (string, bool) {
	for _, m := range t {
		if strings.HasSuffix(name, m.Suffix) {
			return m.Type, true
		}
	}
	return "", false
}

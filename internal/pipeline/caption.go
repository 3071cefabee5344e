package pipeline

import (
	"os"
	"strings"
	"text/template"
	"time"
)

const timeLayout = "2006-01-02 15:04:05"

var captionTmpl = template.Must(template.New("caption").Parse(
	`{{- .Icon}} {{.When}}{{if .Source}} · {{.Source}}{{end}}`))

type captionData struct {
	Icon   string
	When   string
	Source string
}

// caption builds the timestamp caption of a delivered artifact. The file's
// modification time is used when available.
func caption(icon, path, source string) string {
	when := time.Now()
	if info, err := os.Stat(path); err == nil {
		when = info.ModTime()
	}
	var b strings.Builder
	_ = captionTmpl.Execute(&b, captionData{Icon: icon, When: when.Format(timeLayout), Source: source})
	return b.String()
}

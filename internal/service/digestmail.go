package service

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/mjaychoi/hc-violins/internal/digest"
)

// digestBodyTemplate is the built-in plain-text layout for the daily
// digest email. Buckets arrive already ordered: most overdue first,
// then today, then soonest-due first.
var digestBodyTemplate = template.Must(template.New("digest").Parse(`Good morning,

Here is your workshop due-date summary.
{{if .Overdue}}
OVERDUE
{{range .Overdue}}  - {{.Task.Title}} ({{.Days}} day{{if ne .Days 1}}s{{end}} late)
{{end}}{{end}}{{if .Today}}
DUE TODAY
{{range .Today}}  - {{.Task.Title}}
{{end}}{{end}}{{if .Upcoming}}
COMING UP
{{range .Upcoming}}  - {{.Task.Title}} (in {{.Days}} day{{if ne .Days 1}}s{{end}})
{{end}}{{end}}
— HC Violins
`))

// RenderDigest turns a digest into the subject and body of the daily
// email.
func RenderDigest(d *digest.Digest) (subject, body string, err error) {
	subject = fmt.Sprintf("Workshop tasks: %d overdue, %d due today, %d coming up",
		len(d.Overdue), len(d.Today), len(d.Upcoming))

	var buf bytes.Buffer
	if err := digestBodyTemplate.Execute(&buf, d); err != nil {
		return "", "", err
	}
	return subject, buf.String(), nil
}

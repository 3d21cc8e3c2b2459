package notify

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/yuin/goldmark"
)

// The reminder body is authored as markdown and rendered to HTML for the
// email, with the raw markdown doubling as the plain-text part.
const reminderSubject = "Time to water %s"

const reminderMarkdown = `Hi {{.Username}},

**{{.PlantName}}** has been waiting for water since {{.DueSince.Format "Monday, 2 January"}}.

Give it a drink and confirm the watering in PlantKeeper so the schedule stays on track.

*You are receiving this because reminders are enabled for this plant.*
`

var reminderTmpl = template.Must(template.New("reminder").Parse(reminderMarkdown))

// RenderSubject returns the reminder subject line for a plant.
func RenderSubject(plantName string) string {
	return fmt.Sprintf(reminderSubject, plantName)
}

// RenderBody returns the markdown and HTML bodies for a reminder.
func RenderBody(r Reminder) (markdown string, html string, err error) {
	var md bytes.Buffer
	if err := reminderTmpl.Execute(&md, r); err != nil {
		return "", "", fmt.Errorf("execute reminder template: %w", err)
	}

	var out bytes.Buffer
	if err := goldmark.Convert(md.Bytes(), &out); err != nil {
		return "", "", fmt.Errorf("render reminder markdown: %w", err)
	}
	return md.String(), out.String(), nil
}

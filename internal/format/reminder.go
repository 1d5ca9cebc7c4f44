// Package format renders reminder notifications for delivery.
package format

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/hilalcal/hilal/internal/models"
)

const SiteURL = "https://hilalshaban.com"

var reminderTmpl = template.Must(template.New("reminder").Parse(`<div style="font-family: sans-serif; max-width: 400px; margin: 0 auto; padding: 32px;">
  <h2 style="color: #0d9488; margin-bottom: 8px;">Hilal Calendar</h2>
  <div style="background: #f1f5f9; padding: 20px; border-radius: 8px; margin: 16px 0;">
    <h3 style="color: #0f172a; margin: 0 0 8px 0;">{{.Title}}</h3>
    <p style="color: #64748b; margin: 0 0 12px 0;">{{.HijriDate}}</p>
    {{- if .Description}}
    <p style="color: #475569; margin: 0;">{{.Description}}</p>
    {{- end}}
  </div>
  <p style="color: #94a3b8; font-size: 13px;">
    You set this reminder on Hilal Calendar.
    Visit <a href="{{.SiteURL}}" style="color: #0d9488;">hilalshaban.com</a> to manage your reminders.
  </p>
</div>
`))

// Subject returns the email subject line for a reminder title.
func Subject(title string) string {
	return "Reminder: " + title
}

// ReminderHTML renders the HTML body of a reminder email. User supplied
// fields are escaped.
func ReminderHTML(r *models.Reminder) (string, error) {
	var buf bytes.Buffer
	err := reminderTmpl.Execute(&buf, struct {
		Title, HijriDate, Description, SiteURL string
	}{r.Title, r.HijriDate, r.Description, SiteURL})
	if err != nil {
		return "", fmt.Errorf("render reminder %s: %w", r.ID, err)
	}
	return buf.String(), nil
}

// AdvanceNotice appends the "(in N days)" marker used for reminders sent
// ahead of the anniversary.
func AdvanceNotice(title string, daysBefore int) string {
	switch {
	case daysBefore <= 0:
		return title
	case daysBefore == 1:
		return title + " (in 1 day)"
	default:
		return fmt.Sprintf("%s (in %d days)", title, daysBefore)
	}
}

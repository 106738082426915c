package notify

import (
	"bytes"
	"html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"registration-backend/internal/registrations"
)

var ackHTML = template.Must(template.New("ack").Parse(`<p>Dear {{.Guardian}},</p>
<p>We have received the registration of <strong>{{.Student}}</strong> at {{.Centre}}.</p>
<p>Your application reference is <strong>{{.Ref}}</strong>. Please quote it in any enquiry.</p>
<p>Submitted: {{.SubmittedAt}}</p>`))

var ackText = texttemplate.Must(texttemplate.New("ack").Parse(`Dear {{.Guardian}},

We have received the registration of {{.Student}} at {{.Centre}}.

Your application reference is {{.Ref}}. Please quote it in any enquiry.

Submitted: {{.SubmittedAt}}
`))

type ackData struct {
	Guardian    string
	Student     string
	Centre      string
	Ref         string
	SubmittedAt string
}

// Acknowledgement composes the receipt sent to the guardian of app.
func Acknowledgement(app registrations.Application) (Email, error) {
	data := ackData{
		Guardian:    app.Input.GuardianName,
		Student:     app.Input.StudentName,
		Centre:      app.Input.CentreName,
		Ref:         app.Ref,
		SubmittedAt: app.SubmittedAt.UTC().Format(time.RFC1123),
	}

	var text strings.Builder
	if err := ackText.Execute(&text, data); err != nil {
		return Email{}, err
	}
	var html bytes.Buffer
	if err := ackHTML.Execute(&html, data); err != nil {
		return Email{}, err
	}

	return Email{
		ToName:    app.Input.GuardianName,
		ToAddress: app.Input.GuardianEmail,
		Subject:   "Registration received: " + app.Ref,
		Text:      text.String(),
		HTML:      html.String(),
	}, nil
}

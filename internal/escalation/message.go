package escalation

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"text/template"
	"time"

	"github.com/saferide/saferide/internal/geo"
	"github.com/saferide/saferide/internal/session"
	"github.com/saferide/saferide/internal/threat"
)

type messageData struct {
	ContactName string
	SessionID   string
	DispatchID  string
	Level       threat.Level
	Score       float64
	Emergency   bool
	Location    *geo.Location
	MapURL      string
	Vehicle     *session.VehicleInfo
	Time        string
}

const textTemplate = `Hi {{.ContactName}},

{{if .Emergency}}EMERGENCY: emergency services have been alerted for a ride you are an emergency contact for.{{else}}A ride you are an emergency contact for has been flagged as unsafe.{{end}}

Threat level: {{.Level}} (score {{printf "%.2f" .Score}})
Time: {{.Time}}
{{with .Location}}Last known location: {{printf "%.5f" .Lat}}, {{printf "%.5f" .Lng}}
Map: {{$.MapURL}}
{{end}}{{with .Vehicle}}Vehicle: {{.Color}} {{.Make}} {{.Model}} {{.LicensePlate}}{{if .DriverName}} (driver {{.DriverName}}){{end}}
{{end}}
Reference: {{.DispatchID}}
`

const htmlTemplate = `<!DOCTYPE html>
<html><body>
<p>Hi {{.ContactName}},</p>
{{if .Emergency}}<p><strong>EMERGENCY:</strong> emergency services have been alerted for a ride you are an emergency contact for.</p>{{else}}<p>A ride you are an emergency contact for has been flagged as unsafe.</p>{{end}}
<ul>
<li>Threat level: {{.Level}} (score {{printf "%.2f" .Score}})</li>
<li>Time: {{.Time}}</li>
{{with .Location}}<li>Last known location: <a href="{{$.MapURL}}">{{printf "%.5f" .Lat}}, {{printf "%.5f" .Lng}}</a></li>{{end}}
{{with .Vehicle}}<li>Vehicle: {{.Color}} {{.Make}} {{.Model}} {{.LicensePlate}}{{if .DriverName}} (driver {{.DriverName}}){{end}}</li>{{end}}
</ul>
<p>Reference: {{.DispatchID}}</p>
</body></html>
`

var (
	textMessage = template.Must(template.New("text").Parse(textTemplate))
	htmlMessage = htmltemplate.Must(htmltemplate.New("html").Parse(htmlTemplate))
)

// BuildMessage renders the alert sent to contact for dispatch d.
func BuildMessage(contact session.EmergencyContact, sess *session.RideSession, d *Dispatch, a threat.Assessment) (Message, error) {
	data := messageData{
		ContactName: contact.Name,
		SessionID:   sess.ID,
		DispatchID:  d.ID,
		Level:       a.Level,
		Score:       a.Score,
		Emergency:   a.Action.IsEmergency(),
		Location:    d.LastKnownLocation,
		Vehicle:     sess.VehicleInfo,
		Time:        a.Timestamp.UTC().Format(time.RFC1123),
	}
	if d.LastKnownLocation != nil {
		data.MapURL = fmt.Sprintf("https://www.openstreetmap.org/?mlat=%.6f&mlon=%.6f#map=17/%.6f/%.6f",
			d.LastKnownLocation.Lat, d.LastKnownLocation.Lng, d.LastKnownLocation.Lat, d.LastKnownLocation.Lng)
	}

	var text, html bytes.Buffer
	if err := textMessage.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("rendering text body: %w", err)
	}
	if err := htmlMessage.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("rendering html body: %w", err)
	}

	subject := "SafeRide alert: ride flagged as unsafe"
	if data.Emergency {
		subject = "SafeRide EMERGENCY: emergency services alerted"
	}

	return Message{
		To:       contact.Email,
		Subject:  subject,
		HTMLBody: html.String(),
		TextBody: text.String(),
	}, nil
}

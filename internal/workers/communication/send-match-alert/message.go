package sendmatchalert

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"propguard-workers/internal/models"
)

type alertMessage struct {
	Subject string
	Text    string
	HTML    string
	SMS     string
}

var htmlBody = template.Must(template.New("alert").Parse(`<html><body>
<p>Hi {{.Name}},</p>
<p>{{.Intro}}</p>
<ul>
{{- range .Matches}}
<li><strong>{{.Address}}</strong>, {{.City}}: {{.Price}} ({{.Score}}% match)</li>
{{- end}}
</ul>
{{- if .More}}
<p>and {{.More}} more.</p>
{{- end}}
</body></html>`))

type htmlMatch struct {
	Address string
	City    string
	Price   string
	Score   int
}

// composeAlert renders the email and SMS bodies for matches, which must be
// non-empty and ordered best first.
func composeAlert(contact *models.Contact, input *Input, maxListed int) (alertMessage, error) {
	name := strings.TrimSpace(contact.Name)
	if name == "" {
		name = "there"
	}

	intro := fmt.Sprintf("We found %d new %s", len(input.Matches), plural(len(input.Matches), "listing", "listings"))
	subject := fmt.Sprintf("%d new property %s", len(input.Matches), plural(len(input.Matches), "match", "matches"))
	if input.SearchName != "" {
		intro += fmt.Sprintf(" for your saved search %q", input.SearchName)
		subject += " for " + input.SearchName
	}
	intro += "."

	listed := input.Matches
	if maxListed > 0 && len(listed) > maxListed {
		listed = listed[:maxListed]
	}

	var text strings.Builder
	text.WriteString(fmt.Sprintf("Hi %s,\n\n%s\n\n", name, intro))
	items := make([]htmlMatch, 0, len(listed))
	for _, m := range listed {
		price := formatPrice(m.Price)
		text.WriteString(fmt.Sprintf("- %s, %s: %s (%d%% match)\n", m.Address, m.Location.City, price, m.MatchScore))
		items = append(items, htmlMatch{Address: m.Address, City: m.Location.City, Price: price, Score: m.MatchScore})
	}
	more := len(input.Matches) - len(listed)
	if more > 0 {
		text.WriteString(fmt.Sprintf("\nand %d more.\n", more))
	}

	var html bytes.Buffer
	err := htmlBody.Execute(&html, map[string]interface{}{
		"Name":    name,
		"Intro":   intro,
		"Matches": items,
		"More":    more,
	})
	if err != nil {
		return alertMessage{}, fmt.Errorf("render alert html: %w", err)
	}

	top := input.Matches[0]
	sms := fmt.Sprintf("PropGuard: %d new %s. Top: %s, %s at %s (%d%% match).",
		len(input.Matches), plural(len(input.Matches), "match", "matches"),
		top.Address, top.Location.City, formatPrice(top.Price), top.MatchScore)

	return alertMessage{
		Subject: subject,
		Text:    text.String(),
		HTML:    html.String(),
		SMS:     sms,
	}, nil
}

// formatPrice renders whole dollars with thousands separators.
func formatPrice(p float64) string {
	digits := fmt.Sprintf("%.0f", p)
	var b strings.Builder
	b.WriteByte('$')
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

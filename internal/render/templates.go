package render

// Default newsletter layout. Kept deliberately plain: broad client
// compatibility matters more than styling for a text-heavy digest.

const defaultHTMLTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: Georgia, serif; max-width: 640px; margin: 0 auto; color: #222;">
  <h1 style="font-size: 22px;">{{.Issue.Subject}}</h1>
  <p style="color: #666;">Week {{.Issue.WeekID}}</p>
  {{range .Issue.Sections}}
  <h2 style="font-size: 18px; border-bottom: 1px solid #ddd;">{{.Title}}</h2>
  {{if .Summary}}<p>{{.Summary}}</p>{{end}}
  {{range .Articles}}
  <div style="margin-bottom: 16px;">
    <a href="{{.URL}}" style="font-weight: bold;">{{.Title}}</a>
    <span style="color: #888;"> — {{.Source}}</span>
    <p style="margin: 4px 0;">{{.Summary}}</p>
  </div>
  {{end}}
  {{end}}
  <hr style="border: none; border-top: 1px solid #ddd;">
  <p style="font-size: 12px; color: #888;">
    You are receiving this because {{.Email}} is subscribed.
    <a href="{{.UnsubscribeURL}}">Unsubscribe</a> ·
    <a href="{{.SiteURL}}">View on the web</a>
  </p>
</body>
</html>
`

const defaultTextTemplate = `{{.Issue.Subject}}
Week {{.Issue.WeekID}}

{{range .Issue.Sections}}{{.Title}}
{{if .Summary}}{{.Summary}}
{{end}}
{{range .Articles}}* {{.Title}} ({{.Source}})
  {{.Summary}}
  {{.URL}}

{{end}}{{end}}--
You are receiving this because {{.Email}} is subscribed.
Unsubscribe: {{.UnsubscribeURL}}
`

package render

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	texttemplate "text/template"

	"github.com/GeneralToucan/alkinson-newsletter/internal/domain"
)

// Email is a rendered message for one subscriber, ready for the transport.
type Email struct {
	Subject        string
	HTMLBody       string
	TextBody       string
	UnsubscribeURL string
}

// Renderer turns an issue plus a subscriber into a ready-to-send email.
// Implementations must be pure: same inputs, same output, no side effects.
type Renderer interface {
	Render(issue *domain.Issue, sub *domain.Subscriber) (*Email, error)
}

// TemplateRenderer renders the default newsletter layout with
// html/template (escaped HTML part) and text/template (plain part).
// Templates are parsed once at construction.
type TemplateRenderer struct {
	siteBaseURL string
	html        *htmltemplate.Template
	text        *texttemplate.Template
}

// templateData is the single payload both templates consume.
type templateData struct {
	Issue          *domain.Issue
	Email          string
	UnsubscribeURL string
	SiteURL        string
}

func NewTemplateRenderer(siteBaseURL string) (*TemplateRenderer, error) {
	h, err := htmltemplate.New("html").Parse(defaultHTMLTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse html template: %w", err)
	}
	t, err := texttemplate.New("text").Parse(defaultTextTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse text template: %w", err)
	}
	return &TemplateRenderer{siteBaseURL: siteBaseURL, html: h, text: t}, nil
}

func (r *TemplateRenderer) Render(issue *domain.Issue, sub *domain.Subscriber) (*Email, error) {
	data := templateData{
		Issue:          issue,
		Email:          sub.Email,
		UnsubscribeURL: r.unsubscribeURL(sub),
		SiteURL:        r.siteBaseURL,
	}

	var html bytes.Buffer
	if err := r.html.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("render html body: %w", err)
	}
	var text bytes.Buffer
	if err := r.text.Execute(&text, data); err != nil {
		return nil, fmt.Errorf("render text body: %w", err)
	}

	subject := issue.Subject
	if subject == "" {
		subject = "Newsletter " + issue.WeekID
	}

	return &Email{
		Subject:        subject,
		HTMLBody:       html.String(),
		TextBody:       text.String(),
		UnsubscribeURL: data.UnsubscribeURL,
	}, nil
}

func (r *TemplateRenderer) unsubscribeURL(sub *domain.Subscriber) string {
	q := url.Values{}
	q.Set("email", sub.Email)
	q.Set("token", sub.UnsubscribeToken)
	return r.siteBaseURL + "/unsubscribe?" + q.Encode()
}

var _ Renderer = (*TemplateRenderer)(nil)

package render_test

import (
	"strings"
	"testing"
	"time"

	"github.com/GeneralToucan/alkinson-newsletter/internal/domain"
	"github.com/GeneralToucan/alkinson-newsletter/internal/render"
)

func testIssue() *domain.Issue {
	return &domain.Issue{
		WeekID:  "2026-week-34",
		Subject: "Research Weekly",
		Sections: []domain.Section{
			{
				Title:   "Research",
				Summary: "This week in research.",
				Articles: []domain.Article{
					{Title: "A new finding", Source: "Example Journal", URL: "https://example.org/a", Summary: "Short summary."},
				},
			},
		},
		GeneratedAt: time.Now().UTC(),
	}
}

func TestTemplateRenderer_Render(t *testing.T) {
	r, err := render.NewTemplateRenderer("https://news.example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sub := &domain.Subscriber{
		ID:               "sub-1",
		Email:            "reader@example.com",
		Status:           domain.StatusActive,
		UnsubscribeToken: "tok-123",
	}

	email, err := r.Render(testIssue(), sub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if email.Subject != "Research Weekly" {
		t.Fatalf("unexpected subject: %q", email.Subject)
	}
	for _, want := range []string{"A new finding", "reader@example.com", "tok-123"} {
		if !strings.Contains(email.HTMLBody, want) {
			t.Errorf("html body missing %q", want)
		}
		if !strings.Contains(email.TextBody, want) {
			t.Errorf("text body missing %q", want)
		}
	}
	if !strings.Contains(email.UnsubscribeURL, "token=tok-123") {
		t.Fatalf("unsubscribe URL missing token: %q", email.UnsubscribeURL)
	}
}

func TestTemplateRenderer_EscapesHTML(t *testing.T) {
	r, err := render.NewTemplateRenderer("https://news.example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	issue := testIssue()
	issue.Sections[0].Articles[0].Title = "<script>alert(1)</script>"

	sub := &domain.Subscriber{Email: "reader@example.com", UnsubscribeToken: "tok"}
	email, err := r.Render(issue, sub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(email.HTMLBody, "<script>") {
		t.Fatal("html body must escape article content")
	}
}

func TestTemplateRenderer_DefaultSubject(t *testing.T) {
	r, _ := render.NewTemplateRenderer("https://news.example.com")
	issue := testIssue()
	issue.Subject = ""

	email, err := r.Render(issue, &domain.Subscriber{Email: "a@b.c", UnsubscribeToken: "t"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(email.Subject, issue.WeekID) {
		t.Fatalf("fallback subject should mention week id, got %q", email.Subject)
	}
}

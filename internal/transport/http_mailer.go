package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"
)

// sendRequest is the JSON body posted to the external mail API.
type sendRequest struct {
	From            string `json:"from"`
	To              string `json:"to"`
	Subject         string `json:"subject"`
	HTMLBody        string `json:"html_body"`
	TextBody        string `json:"text_body"`
	ListUnsubscribe string `json:"list_unsubscribe,omitempty"`
}

// sendResponse maps the API's 202 Accepted response body.
type sendResponse struct {
	MessageID string `json:"messageId"`
}

// HTTPMailer delivers mail by POSTing to an external email API.
// The base URL is injected from config so tests can point to a local mock.
type HTTPMailer struct {
	baseURL    string
	apiKey     string
	sender     string
	httpClient *http.Client
}

func NewHTTPMailer(baseURL, apiKey, sender string, timeout time.Duration) *HTTPMailer {
	return &HTTPMailer{
		baseURL: baseURL,
		apiKey:  apiKey,
		sender:  sender,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Send posts the message and expects a 202 Accepted with a messageId.
// Every failure comes back as a *SendError so the caller's retry policy
// can classify it without string matching.
func (m *HTTPMailer) Send(ctx context.Context, msg *Message) (string, error) {
	body, err := json.Marshal(sendRequest{
		From:            m.sender,
		To:              msg.To,
		Subject:         msg.Subject,
		HTMLBody:        msg.HTMLBody,
		TextBody:        msg.TextBody,
		ListUnsubscribe: msg.UnsubscribeURL,
	})
	if err != nil {
		return "", &SendError{Kind: KindRejected, Msg: "marshal request: " + err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", &SendError{Kind: KindRejected, Msg: "create request: " + err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
			return "", &SendError{Kind: KindTimeout, Msg: err.Error()}
		}
		return "", &SendError{Kind: KindUnknown, Msg: err.Error()}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusOK:
		var sr sendResponse
		if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
			return "", &SendError{Kind: KindUnknown, Status: resp.StatusCode, Msg: "decode response: " + err.Error()}
		}
		return sr.MessageID, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &SendError{Kind: KindThrottled, Status: resp.StatusCode, Msg: readBodyPrefix(resp.Body)}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return "", &SendError{Kind: KindRejected, Status: resp.StatusCode, Msg: readBodyPrefix(resp.Body)}
	default:
		return "", &SendError{Kind: KindUnknown, Status: resp.StatusCode, Msg: readBodyPrefix(resp.Body)}
	}
}

func isClientTimeout(err error) bool {
	var timeout interface{ Timeout() bool }
	return errors.As(err, &timeout) && timeout.Timeout()
}

// readBodyPrefix captures up to 256 bytes of an error body for logging.
func readBodyPrefix(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 256))
	return string(bytes.TrimSpace(b))
}

// compile-time check that HTTPMailer implements Mailer
var _ Mailer = (*HTTPMailer)(nil)

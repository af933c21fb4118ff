// Package mailer implements the outbound mail gateway client. The gateway
// speaks a Postmark-style JSON API: a single POST /email endpoint
// authenticated with a server token header.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ignite/newsletter/internal/config"
	"github.com/ignite/newsletter/internal/domain"
)

const serverTokenHeader = "X-Postmark-Server-Token"

// sendEmailRequest is the gateway wire format.
type sendEmailRequest struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HTMLBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// Client sends email through the HTTP mail gateway. One Client is shared
// by all requests; its underlying http.Client carries a hard send timeout
// so a stalled provider cannot hold a handler goroutine indefinitely.
type Client struct {
	httpClient *http.Client
	baseURL    string
	authToken  string
	sender     domain.SubscriberEmail
}

// NewClient builds a mail gateway client from configuration. The
// configured sender address is validated once at construction.
func NewClient(cfg config.EmailConfig) (*Client, error) {
	sender, err := domain.ParseSubscriberEmail(cfg.SenderEmail)
	if err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.SendTimeout()},
		baseURL:    cfg.BaseURL,
		authToken:  cfg.AuthToken,
		sender:     sender,
	}, nil
}

// Send delivers a single email. A non-2xx gateway response or a transport
// timeout is returned as an error; nothing is retried here.
func (c *Client) Send(ctx context.Context, to domain.SubscriberEmail, subject, htmlBody, textBody string) error {
	body, err := json.Marshal(sendEmailRequest{
		From:     c.sender.String(),
		To:       to.String(),
		Subject:  subject,
		HTMLBody: htmlBody,
		TextBody: textBody,
	})
	if err != nil {
		return fmt.Errorf("encode send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/email", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(serverTokenHeader, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mail gateway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mail gateway returned %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}
	return nil
}

// SendConfirmation renders the confirmation templates with the given link
// and sends the welcome email to a new subscriber.
func (c *Client) SendConfirmation(ctx context.Context, to domain.SubscriberEmail, confirmationLink string) error {
	htmlBody, textBody, err := RenderConfirmation(confirmationLink)
	if err != nil {
		return fmt.Errorf("render confirmation email: %w", err)
	}
	return c.Send(ctx, to, "Welcome!", htmlBody, textBody)
}

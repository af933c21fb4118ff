package mailer

import (
	"fmt"
	"strings"

	"github.com/osteele/liquid"
)

var templateEngine = liquid.NewEngine()

const confirmationHTMLTemplate = `Welcome to our newsletter!<br />
Click <a href="{{ confirmation_link }}">here</a> to confirm your subscription.`

const confirmationTextTemplate = `Welcome to our newsletter!
Visit {{ confirmation_link }} to confirm your subscription.`

// RenderConfirmation renders the HTML and plain-text bodies of the
// confirmation email with the link bound in.
func RenderConfirmation(confirmationLink string) (htmlBody, textBody string, err error) {
	bindings := map[string]any{"confirmation_link": confirmationLink}

	htmlBody, err = templateEngine.ParseAndRenderString(confirmationHTMLTemplate, bindings)
	if err != nil {
		return "", "", fmt.Errorf("render html body: %w", err)
	}
	textBody, err = templateEngine.ParseAndRenderString(confirmationTextTemplate, bindings)
	if err != nil {
		return "", "", fmt.Errorf("render text body: %w", err)
	}
	return strings.TrimSpace(htmlBody), strings.TrimSpace(textBody), nil
}

package compliance

import (
	"errors"
	"fmt"
	"html"
	"strings"
)

// ErrMissingContact is returned when no rights-request address is configured.
var ErrMissingContact = errors.New("compliance: footer contact address is required")

// FooterConfig configures the recipient-rights notice appended to outgoing email.
type FooterConfig struct {
	// ContactEmail is where recipients send access, correction, or deletion requests.
	ContactEmail string
	BusinessName string
}

// Footer renders the recipient-rights notice and guarantees it appears once per body.
type Footer struct {
	block string
}

// NewFooter builds the footer block for cfg.
func NewFooter(cfg FooterConfig) (*Footer, error) {
	contact := strings.TrimSpace(cfg.ContactEmail)
	if contact == "" {
		return nil, ErrMissingContact
	}
	business := strings.TrimSpace(cfg.BusinessName)
	if business == "" {
		business = "us"
	}
	escaped := html.EscapeString(contact)
	block := fmt.Sprintf(
		`<div data-footer="recipient-rights" style="margin-top:24px;font-size:12px;color:#666">`+
			`You are receiving this email because you booked a session with %s. `+
			`You may request access to, correction of, or deletion of your personal data at any time by writing to `+
			`<a href="mailto:%s">%s</a>.</div>`,
		html.EscapeString(business), escaped, escaped,
	)
	return &Footer{block: block}, nil
}

// HTML returns the rendered footer block.
func (f *Footer) HTML() string {
	return f.block
}

// Apply returns body with exactly one copy of the footer at the end. Copies
// already present in body are removed first, including copies that only
// form once an inner copy is cut out.
func (f *Footer) Apply(body string) string {
	cleaned := body
	for strings.Contains(cleaned, f.block) {
		cleaned = strings.ReplaceAll(cleaned, f.block, "")
	}
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return f.block
	}
	return cleaned + "\n" + f.block
}

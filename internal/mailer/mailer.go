// Package mailer abstracts outbound email. Delivery itself is an external
// collaborator; the API only needs a way to hand off a reset link.
package mailer

import "fintrack/internal/logger"

// Mailer sends transactional mail.
type Mailer interface {
	// SendPasswordReset delivers a password reset link to the address.
	SendPasswordReset(email, link string) error
}

// LogMailer writes outbound mail to the application log instead of
// delivering it. Used in development and tests.
type LogMailer struct {
	From string
}

// SendPasswordReset logs the reset link.
func (m *LogMailer) SendPasswordReset(email, link string) error {
	logger.Get().Infow("password reset mail",
		"from", m.From,
		"to", email,
		"link", link,
	)
	return nil
}

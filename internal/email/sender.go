// Package email sends rent reminders with the invoice attached over
// authenticated SSL SMTP.
package email

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/rentdesk/rent-reminder/internal/models"
)

// Sender delivers reminder emails to tenants.
type Sender struct {
	host       string
	port       int
	username   string
	password   string
	senderName string
	logger     *zap.Logger

	// send is swappable for tests; the default dials SMTP.
	send func(m *gomail.Message) error
}

// Config holds SMTP configuration
type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	SenderName string
}

// NewSender creates a new email sender.
func NewSender(cfg Config, logger *zap.Logger) *Sender {
	s := &Sender{
		host:       cfg.Host,
		port:       cfg.Port,
		username:   cfg.Username,
		password:   cfg.Password,
		senderName: cfg.SenderName,
		logger:     logger,
	}
	s.send = s.dialAndSend
	return s
}

// Send emails the invoice to the record's address. followUp only
// changes the subject tone, not the routing. Errors are returned for
// the caller to treat as a per-record warning.
func (s *Sender) Send(ctx context.Context, rec models.TenantRecord, pdfPath string, followUp bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	if s.senderName != "" {
		m.SetHeader("From", m.FormatAddress(s.username, s.senderName))
	} else {
		m.SetHeader("From", s.username)
	}
	m.SetHeader("To", rec.Email)
	m.SetHeader("Subject", subjectFor(rec, followUp))
	m.SetBody("text/plain", buildBody(rec, s.senderName))
	m.Attach(pdfPath)

	if err := s.send(m); err != nil {
		s.logger.Error("Failed to send reminder email",
			zap.String("tenant", rec.TenantName),
			zap.String("to", rec.Email),
			zap.Error(err))
		return fmt.Errorf("failed to send email to %s: %w", rec.Email, err)
	}

	s.logger.Info("Reminder email sent",
		zap.String("tenant", rec.TenantName),
		zap.String("to", rec.Email),
		zap.Bool("follow_up", followUp))
	return nil
}

func (s *Sender) dialAndSend(m *gomail.Message) error {
	d := gomail.NewDialer(s.host, s.port, s.username, s.password)
	d.SSL = true
	return d.DialAndSend(m)
}

// subjectFor builds the subject line. Follow-ups get a prefix only.
func subjectFor(rec models.TenantRecord, followUp bool) string {
	subject := fmt.Sprintf("Rent Bill - %s", rec.BillMonth)
	if followUp {
		return "Follow-Up: " + subject
	}
	return subject
}

// buildBody composes the plain-text body from the record fields.
func buildBody(rec models.TenantRecord, senderName string) string {
	return fmt.Sprintf(`Hi %s,

Please find attached your rent bill for %s.
Amount Due: Rs. %s
Due Date: %s

Notes: %s

Thank you,
%s
`, rec.TenantName, rec.BillMonth, rec.RentAmount, rec.DueDate, rec.Notes, senderName)
}

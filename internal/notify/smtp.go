package notify

import (
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail"

	"github.com/dropDatabas3/cogmesh/internal/observability/logger"
)

// SMTPNotifier implementa Notifier usando SMTP.
type SMTPNotifier struct {
	Host               string
	Port               int
	From               string
	User               string
	Pass               string
	To                 string
	TLSMode            string // "auto" | "starttls" | "ssl" | "none"
	InsecureSkipVerify bool
}

// NewSMTPNotifier crea un notifier SMTP hacia la casilla de escalamiento.
func NewSMTPNotifier(host string, port int, from, user, pass, to string) *SMTPNotifier {
	return &SMTPNotifier{
		Host:    host,
		Port:    port,
		From:    from,
		User:    user,
		Pass:    pass,
		To:      to,
		TLSMode: "auto",
	}
}

// NotifyEscalation envía el aviso por email.
func (s *SMTPNotifier) NotifyEscalation(ev Escalation) error {
	log := logger.L().With(
		logger.Component("notify"),
		logger.String("host", s.Host),
		logger.Int("port", s.Port),
		logger.TenantID(ev.TenantID),
		logger.AgentID(ev.AgentID),
	)

	m := mail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", s.To)
	m.SetHeader("Subject", ev.Subject())
	m.SetBody("text/plain", ev.TextBody())

	d := mail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	d.TLSConfig = &tls.Config{
		ServerName:         s.Host,
		InsecureSkipVerify: s.InsecureSkipVerify, // solo dev
	}

	switch s.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.TLSConfig = &tls.Config{InsecureSkipVerify: s.InsecureSkipVerify}
	default:
		// "auto"/"starttls": go-mail negocia STARTTLS si corresponde
	}

	if err := d.DialAndSend(m); err != nil {
		log.Error("escalation email failed", logger.Err(err))
		return fmt.Errorf("smtp send: %w", err)
	}

	log.Info("escalation email sent")
	return nil
}

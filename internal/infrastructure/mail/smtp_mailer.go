// Package mail envía los correos transaccionales por SMTP.
package mail

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/jhoicas/stockmaster-api/internal/application/ports"
	"github.com/jhoicas/stockmaster-api/pkg/config"
)

var _ ports.Mailer = (*SMTPMailer)(nil)

// sender abstrae gomail.Dialer para poder probar sin servidor SMTP.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer envía el código OTP de restablecimiento.
type SMTPMailer struct {
	dialer sender
	from   string
}

// NewSMTPMailer construye el mailer a partir de la configuración SMTP.
func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
	}
}

// SendResetCode arma y envía el mensaje. gomail no acepta contexto: se respeta una cancelación previa.
func (m *SMTPMailer) SendResetCode(ctx context.Context, to, code string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := buildResetMessage(m.from, to, code, ttl)
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("smtp: enviar a %s: %w", to, err)
	}
	return nil
}

func buildResetMessage(from, to, code string, ttl time.Duration) *gomail.Message {
	minutes := int(ttl.Round(time.Minute) / time.Minute)
	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "StockMaster: código para restablecer tu contraseña")
	msg.SetBody("text/plain", fmt.Sprintf(
		"Tu código de verificación es %s.\nVence en %d minutos. Si no solicitaste el cambio, ignora este mensaje.", code, minutes))
	msg.AddAlternative("text/html", fmt.Sprintf(
		`<p>Tu código de verificación es <strong style="font-size:20px">%s</strong>.</p><p>Vence en %d minutos. Si no solicitaste el cambio, ignora este mensaje.</p>`,
		code, minutes))
	return msg
}

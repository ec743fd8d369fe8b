package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"wifi-loyalty-portal/internal/config"
	"wifi-loyalty-portal/internal/domain/model"
	"wifi-loyalty-portal/internal/domain/ports/adapter"
	"wifi-loyalty-portal/internal/infra/logging"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// qrFile is the inline attachment name; the voucher template references it as cid:qr.png.
const qrFile = "qr.png"

var (
	_ adapter.Mailer = (*SMTPMailer)(nil)
	_ adapter.Mailer = (*LogMailer)(nil)
)

// sender is the part of gomail.Dialer the mailer uses.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer renders the customer templates and sends them through one SMTP relay.
type SMTPMailer struct {
	dialer   sender
	from     string
	fromName string
	site     string
	log      *zerolog.Logger
}

// NewMailer returns an SMTP mailer, or a log-only mailer when no SMTP host is set.
func NewMailer(cfg config.MailConfig, site string, logger *zerolog.Logger) adapter.Mailer {
	l := logger.With().Str("component", "mailer").Logger()
	if cfg.SMTPHost == "" {
		l.Info().Msg("smtp host not set, customer mail goes to the log only")
		return &LogMailer{log: &l}
	}
	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.Username, cfg.Password)
	d.SSL = cfg.SSL
	return newSMTPMailer(d, cfg.From, cfg.FromName, site, &l)
}

func newSMTPMailer(d sender, from, fromName, site string, logger *zerolog.Logger) *SMTPMailer {
	return &SMTPMailer{dialer: d, from: from, fromName: fromName, site: site, log: logger}
}

type voucherData struct {
	Site        string
	Name        string
	Title       string
	Code        string
	Description string
	Value       float64
	ExpiresAt   string
	HasQR       bool
	QRFile      string
}

type welcomeData struct {
	Site       string
	Name       string
	Tier       string
	NextTier   string
	NextVisits int
}

func (m *SMTPMailer) SendVoucher(ctx context.Context, to *model.Customer, v *model.Voucher) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := render("voucher.html", voucherData{
		Site:        m.site,
		Name:        to.Name,
		Title:       v.Title,
		Code:        v.Code,
		Description: v.Description,
		Value:       v.Value,
		ExpiresAt:   v.ExpiresAt.Format("2006-01-02"),
		HasQR:       len(v.QRPNG) > 0,
		QRFile:      qrFile,
	})
	if err != nil {
		return err
	}

	msg := m.newMessage(to.Email, fmt.Sprintf("Your %s - %s", v.Title, v.Code))
	msg.SetBody("text/plain", fmt.Sprintf("%s\n\nCode: %s\nValid until %s.", v.Title, v.Code, v.ExpiresAt.Format("2006-01-02")))
	msg.AddAlternative("text/html", body)
	if len(v.QRPNG) > 0 {
		png := v.QRPNG
		msg.Embed(qrFile, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(png)
			return err
		}))
	}
	return m.send(msg, "voucher", to.Email)
}

func (m *SMTPMailer) SendWelcome(ctx context.Context, c *model.Customer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data := welcomeData{Site: m.site, Name: c.Name, Tier: c.LoyaltyTier.Title()}
	if next, ok := c.LoyaltyTier.Next(); ok {
		data.NextTier, data.NextVisits = next.Title(), model.TierThreshold(next)
	}
	body, err := render("welcome.html", data)
	if err != nil {
		return err
	}
	msg := m.newMessage(c.Email, fmt.Sprintf("Welcome to %s, %s!", m.site, c.Name))
	msg.SetBody("text/html", body)
	return m.send(msg, "welcome", c.Email)
}

func (m *SMTPMailer) newMessage(to, subject string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from, m.fromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	return msg
}

func (m *SMTPMailer) send(msg *gomail.Message, kind, to string) error {
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send %s mail: %w", kind, err)
	}
	m.log.Info().Str("kind", kind).Str("to", logging.Redact(to, false)).Msg("mail sent")
	return nil
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// LogMailer writes customer mail to the log. Used when SMTP is not configured.
type LogMailer struct {
	log *zerolog.Logger
}

func (m *LogMailer) SendVoucher(_ context.Context, to *model.Customer, v *model.Voucher) error {
	m.log.Info().
		Str("to", logging.Redact(to.Email, false)).
		Str("voucher_id", v.ID).
		Str("type", string(v.Type)).
		Msg("voucher mail (not sent)")
	return nil
}

func (m *LogMailer) SendWelcome(_ context.Context, c *model.Customer) error {
	m.log.Info().Str("to", logging.Redact(c.Email, false)).Str("customer_id", c.ID).Msg("welcome mail (not sent)")
	return nil
}

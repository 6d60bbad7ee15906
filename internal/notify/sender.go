package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"net"
	netmail "net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"socdash/internal/config"
)

const defaultDialTimeout = 10 * time.Second

// Sender delivers the activation link for a freshly invited user.
type Sender interface {
	SendInvitation(ctx context.Context, toEmail, role, link string) error
}

type LogSender struct{}

func (LogSender) SendInvitation(ctx context.Context, toEmail, role, link string) error {
	_ = ctx
	log.Printf("invitation generated email=%s role=%s link=%s", toEmail, role, link)
	return nil
}

type SMTPSender struct {
	cfg config.Config
}

func NewSender(cfg config.Config) Sender {
	switch cfg.InviteSender {
	case "smtp":
		return SMTPSender{cfg: cfg}
	default:
		return LogSender{}
	}
}

func (s SMTPSender) SendInvitation(ctx context.Context, toEmail, role, link string) error {
	raw, err := BuildInvitationMessage(s.cfg.InviteFrom, toEmail, role, link)
	if err != nil {
		return err
	}
	from := s.cfg.InviteFrom
	if addr, perr := netmail.ParseAddress(from); perr == nil {
		from = addr.Address
	}
	return s.send(ctx, from, []string{toEmail}, raw)
}

// BuildInvitationMessage renders the invitation as a text+html
// multipart/alternative RFC 822 message.
func BuildInvitationMessage(from, toEmail, role, link string) ([]byte, error) {
	var buf bytes.Buffer

	var h mail.Header
	h.SetDate(time.Now().UTC())
	fromAddr := &mail.Address{Address: from}
	if parsed, err := netmail.ParseAddress(from); err == nil {
		fromAddr = &mail.Address{Name: parsed.Name, Address: parsed.Address}
	}
	h.SetAddressList("From", []*mail.Address{fromAddr})
	h.SetAddressList("To", []*mail.Address{{Address: toEmail}})
	h.SetSubject("Invitation to SOC Dashboard")

	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	iw, err := mw.CreateInline()
	if err != nil {
		return nil, err
	}

	var th mail.InlineHeader
	th.Set("Content-Type", "text/plain; charset=utf-8")
	tp, err := iw.CreatePart(th)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(tp, "You have been invited to SOC Dashboard as %s.\r\n\r\nActivate your account:\r\n%s\r\n", role, link)
	if err := tp.Close(); err != nil {
		return nil, err
	}

	var hh mail.InlineHeader
	hh.Set("Content-Type", "text/html; charset=utf-8")
	hp, err := iw.CreatePart(hh)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(hp,
		"<p>You have been invited to SOC Dashboard as %s.</p><p>Click the link below to activate your account:</p><a href=%q>%s</a>",
		role, link, link,
	)
	if err := hp.Close(); err != nil {
		return nil, err
	}

	if err := iw.Close(); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s SMTPSender) send(ctx context.Context, from string, rcpt []string, raw []byte) error {
	addr := net.JoinHostPort(s.cfg.SMTPHost, strconv.Itoa(s.cfg.SMTPPort))
	tlsConfig := &tls.Config{ServerName: s.cfg.SMTPHost}

	dialer := &net.Dialer{Timeout: defaultDialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if s.cfg.SMTPTLS {
		conn = tls.Client(conn, tlsConfig)
	}

	client, err := smtp.NewClient(conn, s.cfg.SMTPHost)
	if err != nil {
		return err
	}
	defer client.Close()

	if s.cfg.SMTPStartTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				return err
			}
		}
	}

	if s.cfg.SMTPUser != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPassword, s.cfg.SMTPHost)
			if err := client.Auth(auth); err != nil {
				return err
			}
		}
	}

	if err := client.Mail(from); err != nil {
		return err
	}
	for _, r := range rcpt {
		if err := client.Rcpt(strings.TrimSpace(r)); err != nil {
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := io.Copy(wc, bytes.NewReader(raw)); err != nil {
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return client.Quit()
}

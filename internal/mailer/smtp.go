package mailer

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-gomail/gomail"
	"github.com/google/uuid"
)

type SMTPMailer struct {
	dialer *gomail.Dialer
	host   string
}

// NewSMTPMailer builds a mailer from an smtp:// or smtps:// URL carrying
// optional credentials.
func NewSMTPMailer(rawURL string) (*SMTPMailer, error) {
	dialer, err := smtpDialer(rawURL)
	if err != nil {
		return nil, err
	}
	return &SMTPMailer{dialer: dialer, host: dialer.Host}, nil
}

func smtpDialer(rawURL string) (*gomail.Dialer, error) {
	surl, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	if s := surl.Scheme; s == "" {
		surl.Scheme = "smtps"
	} else if s != "smtp" && s != "smtps" {
		return nil, fmt.Errorf("invalid SMTP URL scheme: %s", s)
	}

	var user, pass string
	if auth := surl.User; auth != nil {
		pass, _ = auth.Password()
		user = auth.Username()
	}

	var port int
	if i, err := strconv.Atoi(surl.Port()); err == nil {
		port = i
	} else if surl.Scheme == "smtp" {
		port = 25
	} else {
		port = 465
	}

	d := gomail.NewDialer(surl.Hostname(), port, user, pass)
	d.SSL = surl.Scheme == "smtps"
	return d, nil
}

// Send opens a connection per message so concurrent sends do not share
// an SMTP session.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	id := fmt.Sprintf("%s@%s", uuid.NewString(), m.host)

	gm := gomail.NewMessage()
	gm.SetHeader("From", msg.From)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetHeader("Message-ID", "<"+id+">")
	gm.SetBody("text/html", msg.HTML)

	if err := m.dialer.DialAndSend(gm); err != nil {
		return Receipt{}, err
	}
	return Receipt{ID: id, SentAt: time.Now().UTC()}, nil
}

var _ Mailer = (*SMTPMailer)(nil)

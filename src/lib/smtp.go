package lib

import (
	"context"
	"log"

	"github.com/wneessen/go-mail"
)

const sendGridHost = "smtp.sendgrid.net"

type SendMailInput struct {
	From     string
	FromName string
	To       []string
	Cc       []string
	Bcc      []string
	ReplyTo  string
	Subject  string
	Body     string
	Html     bool
	// Text is sent as the plain-text alternative of an HTML body.
	Text string
}

// MailTransport delivers a composed message.
type MailTransport interface {
	Send(ctx context.Context, input *SendMailInput) error
}

type SMTPTransport struct {
	client *mail.Client
}

func NewSMTPTransport(host string, port int, user, pass string) (*SMTPTransport, error) {
	opts := []mail.Option{mail.WithPort(port)}
	if user != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(user),
			mail.WithPassword(pass),
		)
	}
	if port != 465 && port != 587 {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	c, err := mail.NewClient(host, opts...)
	if err != nil {
		log.Printf("Could not initialize smtp client: %s\n", err.Error())
		return nil, err
	}
	return &SMTPTransport{client: c}, nil
}

func NewSendGridTransport(port int, user, apiKey string) (*SMTPTransport, error) {
	return NewSMTPTransport(sendGridHost, port, user, apiKey)
}

func (t *SMTPTransport) Send(ctx context.Context, input *SendMailInput) error {
	msg, err := NewMailMessage(input)
	if err != nil {
		return err
	}
	return t.client.DialAndSendWithContext(ctx, msg)
}

// NewMailMessage builds the MIME message for input.
func NewMailMessage(input *SendMailInput) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(input.FromName, input.From); err != nil {
		log.Printf("Failed to set From address: %s\n", err.Error())
		return nil, err
	}
	if err := msg.To(input.To...); err != nil {
		log.Printf("Failed to set To address: %s\n", err.Error())
		return nil, err
	}
	if input.ReplyTo != "" {
		if err := msg.ReplyTo(input.ReplyTo); err != nil {
			log.Printf("Failed to set Reply-To address: %s\n", err.Error())
		}
	}
	if len(input.Cc) > 0 {
		if err := msg.Cc(input.Cc...); err != nil {
			log.Printf("Failed to set Cc address: %s\n", err.Error())
		}
	}
	if len(input.Bcc) > 0 {
		if err := msg.Bcc(input.Bcc...); err != nil {
			log.Printf("Failed to set Bcc address: %s\n", err.Error())
		}
	}
	msg.Subject(input.Subject)
	if input.Html {
		msg.SetBodyString(mail.TypeTextHTML, input.Body)
		if input.Text != "" {
			msg.AddAlternativeString(mail.TypeTextPlain, input.Text)
		}
	} else {
		msg.SetBodyString(mail.TypeTextPlain, input.Body)
	}
	return msg, nil
}

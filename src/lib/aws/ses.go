package aws

import (
	"context"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"natours/src/lib"
)

type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESTransport delivers mail through the SES SendEmail API.
type SESTransport struct {
	client SESAPI
}

func NewSESClient(cfg aws.Config) *ses.Client {
	return ses.NewFromConfig(cfg)
}

func NewSESTransport(client SESAPI) *SESTransport {
	return &SESTransport{client: client}
}

func (t *SESTransport) Send(ctx context.Context, in *lib.SendMailInput) error {
	from := in.From
	if in.FromName != "" {
		from = in.FromName + " <" + in.From + ">"
	}
	body := &types.Body{}
	if in.Html {
		body.Html = &types.Content{Data: aws.String(in.Body), Charset: aws.String("UTF-8")}
		if in.Text != "" {
			body.Text = &types.Content{Data: aws.String(in.Text), Charset: aws.String("UTF-8")}
		}
	} else {
		body.Text = &types.Content{Data: aws.String(in.Body), Charset: aws.String("UTF-8")}
	}
	input := &ses.SendEmailInput{
		Source: aws.String(from),
		Destination: &types.Destination{
			ToAddresses:  in.To,
			CcAddresses:  in.Cc,
			BccAddresses: in.Bcc,
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(in.Subject), Charset: aws.String("UTF-8")},
			Body:    body,
		},
	}
	if in.ReplyTo != "" {
		input.ReplyToAddresses = []string{in.ReplyTo}
	}
	out, err := t.client.SendEmail(ctx, input)
	if err != nil {
		log.Printf("Error sending email: %s\n", err.Error())
		return err
	}
	log.Printf("Sent email with id: %s\n", aws.ToString(out.MessageId))
	return nil
}

package notify

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/stages"
)

type SNSPublisher interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSSink publishes the email subject/text to a topic; email subscribers
// of the topic receive it as mail.
type SNSSink struct {
	client   SNSPublisher
	topicArn string
}

func NewSNSSink(client SNSPublisher, topicArn string) *SNSSink {
	return &SNSSink{client: client, topicArn: topicArn}
}

func (s *SNSSink) Name() string { return "sns" }

func (s *SNSSink) Send(ctx context.Context, ev stages.Event) error {
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topicArn),
		Subject:  aws.String(snsSubject(EmailSubject(ev))),
		Message:  aws.String(EmailText(ev)),
	})
	return err
}

// snsSubject makes s acceptable as an SNS subject: printable ASCII only,
// at most 100 characters.
func snsSubject(s string) string {
	const maxLen = 100
	var b strings.Builder
	for _, r := range s {
		if b.Len() == maxLen {
			break
		}
		if r < 0x20 || r > 0x7e {
			r = '?'
		}
		b.WriteRune(r)
	}
	return b.String()
}

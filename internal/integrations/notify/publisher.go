package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// snsAPI is the minimal SNS interface required by Publisher.
type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Message is the payload published for the messaging gateway, which relays
// Text to the user's chat.
type Message struct {
	UserID string    `json:"user_id"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sent_at"`
}

// Publisher delivers follow-up replies by publishing them to an SNS topic.
type Publisher struct {
	api      snsAPI
	topicARN string
	now      func() time.Time
}

func NewPublisher(api snsAPI, topicARN string) (*Publisher, error) {
	if api == nil {
		return nil, errors.New("notify: api must not be nil")
	}
	topicARN = strings.TrimSpace(topicARN)
	if topicARN == "" {
		return nil, errors.New("notify: topic ARN must not be empty")
	}
	return &Publisher{api: api, topicARN: topicARN, now: time.Now}, nil
}

// Deliver publishes text for userID. Its signature matches
// twophase.DeliverFunc.
func (p *Publisher) Deliver(ctx context.Context, userID, text string) error {
	body, err := json.Marshal(Message{UserID: userID, Text: text, SentAt: p.now().UTC()})
	if err != nil {
		return fmt.Errorf("notify: marshal message: %w", err)
	}
	_, err = p.api.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"user_id": {DataType: aws.String("String"), StringValue: aws.String(userID)},
		},
	})
	if err != nil {
		return fmt.Errorf("notify: publish to %s: %w", p.topicARN, err)
	}
	return nil
}

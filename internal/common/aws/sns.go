// internal/common/aws/sns.go
package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSService is the subset of the SNS client used for publishing.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// RegistrationOutcome is the message published after each registration
// attempt.
type RegistrationOutcome struct {
	InvocationID    string    `json:"invocationId"`
	Serial          string    `json:"serial"`
	Brand           string    `json:"brand"`
	Model           string    `json:"model"`
	Outcome         string    `json:"outcome"`
	ErrorCode       string    `json:"errorCode,omitempty"`
	TransactionHash string    `json:"transactionHash,omitempty"`
	ChainSelector   string    `json:"chainSelector"`
	Timestamp       time.Time `json:"timestamp"`
}

// OutcomeNotifier publishes registration outcomes to an SNS topic.
type OutcomeNotifier struct {
	client   SNSService
	topicARN string
}

// NewOutcomeNotifier loads the default AWS credential chain for region.
func NewOutcomeNotifier(ctx context.Context, region, topicARN string) (*OutcomeNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return NewOutcomeNotifierWithClient(sns.NewFromConfig(cfg), topicARN), nil
}

func NewOutcomeNotifierWithClient(client SNSService, topicARN string) *OutcomeNotifier {
	return &OutcomeNotifier{client: client, topicARN: topicARN}
}

// Notify publishes outcome as JSON. The outcome and chain are also set as
// message attributes so subscribers can filter.
func (n *OutcomeNotifier) Notify(ctx context.Context, outcome RegistrationOutcome) error {
	body, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome: %w", err)
	}

	_, err = n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String("Watch registration " + outcome.Outcome),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"outcome": {
				DataType:    aws.String("String"),
				StringValue: aws.String(outcome.Outcome),
			},
			"chainSelector": {
				DataType:    aws.String("String"),
				StringValue: aws.String(outcome.ChainSelector),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish failed: %w", err)
	}
	return nil
}

package aws

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return m.PublishFunc(ctx, params, optFns...)
}

func TestOutcomeNotifier_Notify(t *testing.T) {
	var captured *sns.PublishInput
	mockSNS := &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			captured = params
			return &sns.PublishOutput{}, nil
		},
	}

	notifier := NewOutcomeNotifierWithClient(mockSNS, "arn:aws:sns:us-east-1:123456789012:watch-registrations")
	outcome := RegistrationOutcome{
		Serial:          "RLX-116500-ABC123",
		Brand:           "Rolex",
		Model:           "Submariner",
		Outcome:         "registered",
		TransactionHash: "0xab",
		ChainSelector:   "ethereum-testnet-sepolia",
		Timestamp:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	require.NoError(t, notifier.Notify(context.Background(), outcome))
	require.NotNil(t, captured)

	assert.Equal(t, "arn:aws:sns:us-east-1:123456789012:watch-registrations", *captured.TopicArn)
	assert.Equal(t, "Watch registration registered", *captured.Subject)
	assert.Equal(t, "registered", *captured.MessageAttributes["outcome"].StringValue)
	assert.Equal(t, "ethereum-testnet-sepolia", *captured.MessageAttributes["chainSelector"].StringValue)

	var decoded RegistrationOutcome
	require.NoError(t, json.Unmarshal([]byte(*captured.Message), &decoded))
	assert.Equal(t, outcome, decoded)
}

func TestOutcomeNotifier_PublishFailure(t *testing.T) {
	mockSNS := &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return nil, errors.New("SNS service unavailable")
		},
	}

	notifier := NewOutcomeNotifierWithClient(mockSNS, "arn")
	err := notifier.Notify(context.Background(), RegistrationOutcome{Outcome: "failed"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SNS service unavailable")
}

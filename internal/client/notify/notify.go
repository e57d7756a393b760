package notify

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
	"github.com/stampcard/stampcard-api/internal/db"
	"github.com/stampcard/stampcard-api/internal/logger"
	"go.uber.org/zap"
)

// ResendNotifier emails customers when they earn a reward. Phone-only
// customers are skipped; they collect the reward at the counter.
type ResendNotifier struct {
	client    *resend.Client
	fromEmail string
	orgName   string
	logger    *zap.Logger
}

// NewResendNotifier creates a notifier sending through the Resend API.
func NewResendNotifier(apiKey, fromEmail, orgName string) *ResendNotifier {
	return &ResendNotifier{
		client:    resend.NewClient(apiKey),
		fromEmail: fromEmail,
		orgName:   orgName,
		logger:    logger.Log,
	}
}

// NotifyReward sends the redemption email.
func (n *ResendNotifier) NotifyReward(ctx context.Context, customer db.Customer) error {
	if customer.Email == nil {
		return nil
	}

	name := "there"
	if customer.Name != nil {
		name = *customer.Name
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", n.orgName, n.fromEmail),
		To:      []string{*customer.Email},
		Subject: fmt.Sprintf("Your %s reward is ready", n.orgName),
		Html: fmt.Sprintf(
			"<p>Hi %s,</p><p>Your stamp card is full. Show this email on your next visit to claim your reward.</p>",
			name),
	}

	sent, err := n.client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send reward email: %w", err)
	}

	n.logger.Info("Reward email sent",
		zap.String("email_id", sent.Id),
		zap.String("customer_id", customer.ID))
	return nil
}

// NopNotifier discards reward notifications. Used when no email provider is
// configured.
type NopNotifier struct{}

func (NopNotifier) NotifyReward(ctx context.Context, customer db.Customer) error {
	return nil
}

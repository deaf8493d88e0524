package notifications

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// messageCreator is the part of the Twilio REST API used for SMS
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioSMSSender sends SMS through Twilio
type TwilioSMSSender struct {
	api        messageCreator
	fromNumber string
	logger     zerolog.Logger
}

// NewTwilioSMSSender creates a Twilio SMS sender. Without credentials it
// drops messages with a warning.
func NewTwilioSMSSender(accountSID, authToken, fromNumber string, logger zerolog.Logger) *TwilioSMSSender {
	s := &TwilioSMSSender{
		fromNumber: fromNumber,
		logger:     logger.With().Str("component", "sms").Logger(),
	}
	if accountSID != "" && authToken != "" && fromNumber != "" {
		client := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		})
		s.api = client.Api
	}
	return s
}

// Configured reports whether messages are actually sent
func (t *TwilioSMSSender) Configured() bool {
	return t.api != nil
}

// SendSMS sends message to the given phone number
func (t *TwilioSMSSender) SendSMS(ctx context.Context, to, message string) error {
	if t.api == nil {
		t.logger.Warn().Str("to", to).Msg("sms delivery not configured, message dropped")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.fromNumber)
	params.SetBody(message)

	resp, err := t.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}

	if resp != nil && resp.Sid != nil {
		t.logger.Debug().Str("to", to).Str("sid", *resp.Sid).Msg("sms sent")
	}
	return nil
}

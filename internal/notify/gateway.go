// Package notify delivers SMS notifications through an outbound queue.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// Gateway sends a single SMS. Implementations are best-effort.
type Gateway interface {
	Send(ctx context.Context, to, body string) error
}

// LogGateway only logs messages. It is used when no provider is configured.
type LogGateway struct {
	logger *zap.Logger
}

func NewLogGateway(logger *zap.Logger) *LogGateway {
	return &LogGateway{logger: logger}
}

func (g *LogGateway) Send(_ context.Context, to, body string) error {
	g.logger.Info("sms (log gateway)", zap.String("to", to), zap.String("body", body))
	return nil
}

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioGateway sends through the Twilio Messages API.
type TwilioGateway struct {
	api    messageCreator
	from   string
	logger *zap.Logger
}

// NewTwilioGateway builds a gateway from account credentials.
func NewTwilioGateway(accountSID, authToken, from string, logger *zap.Logger) *TwilioGateway {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioGateway{api: client.Api, from: from, logger: logger}
}

// Send honours ctx by abandoning the wait; the Twilio client has no context support.
func (g *TwilioGateway) Send(ctx context.Context, to, body string) error {
	if to == "" {
		return errors.New("missing recipient")
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(g.from)
	params.SetBody(body)

	type result struct {
		msg *twilioApi.ApiV2010Message
		err error
	}
	done := make(chan result, 1)
	go func() {
		msg, err := g.api.CreateMessage(params)
		done <- result{msg: msg, err: err}
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("twilio send: %w", ctx.Err())
	case res := <-done:
		if res.err != nil {
			return fmt.Errorf("twilio send: %w", res.err)
		}
		if res.msg != nil && res.msg.Sid != nil {
			g.logger.Debug("sms accepted", zap.String("sid", *res.msg.Sid))
		}
		return nil
	}
}

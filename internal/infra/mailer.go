package infra

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"

	"github.com/tatoodenda/backend/internal/config"
	"github.com/tatoodenda/backend/internal/log"
	"github.com/tatoodenda/backend/internal/otel"
)

// NewMailClient builds the SMTP client and verifies the connection once at
// startup so a bad mail configuration surfaces on boot, not on the first order.
func NewMailClient(c context.Context, cfg config.Mail) *mail.Client {
	c, span := otel.Tracer.Start(c, "main NewMailClient")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "main NewMailClient").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "initializing mail client").Logger()
	logger.Info().Msg("initializing mail client")
	client, err := mail.NewClient(
		cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		err = fmt.Errorf("failed initializing mail client with error=%w", err)
		otel.RecordError(err, span)
		logger.Fatal().Err(err).Msg(err.Error())
	}
	logger.Info().Msg("initialized mail client")

	logger = logger.With().Str(log.KeyProcess, "verifying mail transport").Logger()
	logger.Info().Msg("verifying mail transport")
	err = client.DialWithContext(c)
	if err != nil {
		err = fmt.Errorf("failed verifying mail transport with error=%w", err)
		otel.RecordError(err, span)
		logger.Fatal().Err(err).Msg(err.Error())
	}
	if err = client.Close(); err != nil {
		err = fmt.Errorf("failed closing mail transport verification with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
	}
	logger.Info().Msg("verified mail transport")

	return client
}

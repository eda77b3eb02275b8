package rabbitmq

import (
	"os"

	"github.com/rabbitmq/amqp091-go"

	"github.com/jacklaaa89/amqpwire/logger"
)

// helper types exposed from the underlined SDK package.

type (
	Config         = amqp091.Config
	Authentication = amqp091.Authentication
	PlainAuth      = amqp091.PlainAuth
)

const (
	defaultFrameSize = 131072 // frame size we ask for when Config.FrameSize is unset.
	defaultLocale    = "en_US"
	replySuccess     = 200 // reply-success, amqp091 keeps its constant unexported.
	defaultProduct   = "amqpwire"
	defaultVersion   = "1.0.0"
)

// ConfirmMode selects how publishes are confirmed.
type ConfirmMode int

const (
	// ConfirmAuto uses publisher confirms when the broker advertises them and emulates them otherwise.
	ConfirmAuto ConfirmMode = iota
	// ConfirmAlways enables publisher confirms without checking the broker capabilities.
	ConfirmAlways
	// ConfirmNever always emulates publisher confirms with a returned footer message.
	ConfirmNever
)

// Option configures client behaviour which amqp091.Config does not cover.
type Option func(o *options)

type options struct {
	logger            logger.Logger
	confirms          ConfirmMode
	detectContentType bool
}

func defaultOptions() options {
	return options{
		logger:            logger.New(os.Stderr, logger.LevelInfo),
		confirms:          ConfirmAuto,
		detectContentType: true,
	}
}

// WithLogger sets the logger used by the connection.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l == nil {
			l = logger.Nil
		}
		o.logger = l
	}
}

// WithPublisherConfirms sets how publishes are confirmed.
func WithPublisherConfirms(m ConfirmMode) Option {
	return func(o *options) { o.confirms = m }
}

// WithContentTypeDetection toggles filling in the content_type property of published messages which do not set
// one, based on the body.
func WithContentTypeDetection(enabled bool) Option {
	return func(o *options) { o.detectContentType = enabled }
}

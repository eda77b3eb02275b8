package rabbitmq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacklaaa89/amqpwire/logger"
)

func TestOptions(t *testing.T) {
	rec := &logger.Recorder{}

	tt := []struct {
		Name     string
		Opts     []Option
		Expected func(t *testing.T, o options)
	}{
		{
			Name: "Defaults",
			Expected: func(t *testing.T, o options) {
				assert.IsType(t, &logger.Std{}, o.logger)
				assert.Equal(t, ConfirmAuto, o.confirms)
				assert.True(t, o.detectContentType)
			},
		},
		{
			Name: "Logger",
			Opts: []Option{WithLogger(rec)},
			Expected: func(t *testing.T, o options) {
				assert.Same(t, rec, o.logger)
			},
		},
		{
			Name: "NilLogger",
			Opts: []Option{WithLogger(nil)},
			Expected: func(t *testing.T, o options) {
				assert.Equal(t, logger.Nil, o.logger)
			},
		},
		{
			Name: "Confirms",
			Opts: []Option{WithPublisherConfirms(ConfirmNever)},
			Expected: func(t *testing.T, o options) {
				assert.Equal(t, ConfirmNever, o.confirms)
			},
		},
		{
			Name: "ContentTypeDetection",
			Opts: []Option{WithContentTypeDetection(false)},
			Expected: func(t *testing.T, o options) {
				assert.False(t, o.detectContentType)
			},
		},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			c, err := New(testURL, Config{}, tc.Opts...)
			require.NoError(t, err)
			tc.Expected(t, c.opts)
			assert.Equal(t, c.opts.logger, c.log)
		})
	}
}

func TestNew_ChannelMax(t *testing.T) {
	tt := []struct {
		Name       string
		ChannelMax int
		Expected   uint16
	}{
		{Name: "Unset", Expected: maxChannels},
		{Name: "Set", ChannelMax: 16, Expected: 16},
		{Name: "OutOfRange", ChannelMax: 1 << 20, Expected: maxChannels},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			c, err := New(testURL, Config{ChannelMax: tc.ChannelMax}, WithLogger(logger.Nil))
			require.NoError(t, err)
			assert.Equal(t, tc.Expected, c.channels.max)
		})
	}
}

package rabbitmq

import (
	"net"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// the file contains the seams to the network and the base amqp091 library, this is so we can easily override them
// in tests.

var (
	parseURI = amqp091.ParseURI // parseURI is the function used to parse amqp:// and amqps:// urls.

	// netDialer is the dialer used when Config.Dial is not set.
	netDialer = &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
)

// readBufferSize is the amount of bytes requested from the socket per read.
const readBufferSize = 128 * 1024

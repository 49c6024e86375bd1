// Package channel provides an in-memory sink backed by Watermill's
// gochannel. Published records can be read back through the subscriber,
// which makes it the sink of choice for tests and embedding.
package channel

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/drblury/abrflow/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "channel"

// OutputBuffer is the per-subscriber buffer. A full batch fits without
// blocking the publisher.
const OutputBuffer = 65535

func init() {
	Register()
}

// Register adds the channel sink to the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.ChannelCapabilities)
}

// Build creates a gochannel pub/sub. Messages published before a subscriber
// exists are kept so late readers still see the whole run, though not
// necessarily in publish order.
func Build(_ context.Context, _ transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            OutputBuffer,
		Persistent:                     true,
		BlockPublishUntilSubscriberAck: false,
	}, logger)
	return transport.Transport{
		Publisher:  pubSub,
		Subscriber: pubSub,
	}, nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.ChannelCapabilities
}

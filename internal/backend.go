package internal

import (
	"context"

	"github.com/mvollen/pylon/internal/core/client"
	"github.com/mvollen/pylon/internal/packets"
)

// Backend is an interface for the protocol logic run against each connected
// client, keeping the lower level connection handling in the frontend.
type Backend interface {
	// Identifier returns a uniquely identifying string.
	Identifier() string

	// Init is called before the server is started as a hook for the Backend
	// to perform any necessary initialization before it can accept clients.
	Init(ctx context.Context) error

	// AcceptClient is called once for every accepted connection before the
	// protocol loop starts.
	AcceptClient(c *client.Client) error

	// Handle processes one packet received from a client. It returns false
	// once the client should be disconnected.
	Handle(ctx context.Context, c *client.Client, p *packets.Packet) (bool, error)

	// ReleaseClient is called after the protocol loop for a client has
	// exited, regardless of why it exited.
	ReleaseClient(c *client.Client)
}

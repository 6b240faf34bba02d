package client

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/mvollen/pylon/internal/core/bytes"
	"github.com/mvollen/pylon/internal/packets"
)

// Client wraps one accepted TCP connection and implements the framed
// send/receive operations the protocol loop is built on.
type Client struct {
	connection *net.TCPConn
	ipAddr     string
	port       string

	// Session row associated with this connection, if persistence is enabled.
	SessionID uint64
}

func NewClient(connection *net.TCPConn) *Client {
	addr := strings.Split(connection.RemoteAddr().String(), ":")

	return &Client{
		connection: connection,
		ipAddr:     addr[0],
		port:       addr[1],
	}
}

func (c *Client) IPAddr() string { return c.ipAddr }
func (c *Client) Port() string   { return c.port }

// RemoteAddr returns the full host:port pair of the connected peer.
func (c *Client) RemoteAddr() string {
	return c.connection.RemoteAddr().String()
}

// Read consumes the available bytes directly from the client's TCP connection.
func (c *Client) Read(b []byte) (int, error) {
	return c.connection.Read(b)
}

// Write directly sends data to the client over its TCP connection.
func (c *Client) Write(bytes []byte) (int, error) {
	return c.connection.Write(bytes)
}

// Close the TCP connection.
func (c *Client) Close() error {
	return c.connection.Close()
}

// SendPacket writes one frame of the given kind to the client. The body is
// ignored for control kinds and truncated if it exceeds the frame size. Write
// failures are returned to the caller; nothing is retried here.
func (c *Client) SendPacket(kind uint8, body []byte) error {
	data, size := bytes.FromStruct(packets.New(kind, body))
	return c.transmit(data, size)
}

// transmit writes the contents of data to the TCP connection until the number
// of bytes written >= length.
func (c *Client) transmit(data []byte, length int) error {
	bytesSent := 0

	for bytesSent < length {
		b, err := c.Write(data[bytesSent:length])
		if err != nil {
			return fmt.Errorf("failed to send to client %v: %s", c.IPAddr(), err.Error())
		}
		bytesSent += b
	}

	return nil
}

// ReceivePacket performs one read into buffer, bounded by wait, and returns
// the number of bytes consumed along with those bytes reinterpreted as a
// frame. A read that times out before any data arrives is not an error; it
// returns (0, nil, nil) and the caller is expected to try again on its next
// iteration. A returned error (including io.EOF) means the connection is no
// longer usable.
func (c *Client) ReceivePacket(buffer []byte, wait time.Duration) (int, *packets.Packet, error) {
	if err := c.connection.SetReadDeadline(time.Now().Add(wait)); err != nil {
		return 0, nil, err
	}

	n, err := c.Read(buffer)
	if err != nil {
		if os.IsTimeout(err) {
			return 0, nil, nil
		}
		return n, nil, err
	}
	if n <= 0 {
		return 0, nil, nil
	}

	return n, packets.FromBytes(buffer[:n]), nil
}

// The relay server implements the control-packet protocol: clients send text
// messages that are logged and stored, and either side can end the session
// with a disconnect frame.
package relay

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/mvollen/pylon/internal/core/bytes"
	"github.com/mvollen/pylon/internal/core/client"
	"github.com/mvollen/pylon/internal/core/data"
	"github.com/mvollen/pylon/internal/packets"
)

type Server struct {
	Name   string
	Logger *logrus.Logger

	// Database backing the session store. May be nil, in which case nothing
	// is persisted.
	DB *gorm.DB
}

func (s *Server) Identifier() string {
	return s.Name
}

func (s *Server) Init(ctx context.Context) error {
	return nil
}

// AcceptClient opens a session record for the new connection.
func (s *Server) AcceptClient(c *client.Client) error {
	s.Logger.Infof("[%s] hello, %s", s.Name, c.RemoteAddr())

	if s.DB != nil {
		session, err := data.CreateSession(s.DB, c.RemoteAddr())
		if err != nil {
			return fmt.Errorf("error creating session for %s: %w", c.RemoteAddr(), err)
		}
		c.SessionID = session.ID
	}

	return nil
}

// Handle dispatches one packet received from a client, returning false once
// the client has asked to disconnect.
func (s *Server) Handle(ctx context.Context, c *client.Client, p *packets.Packet) (bool, error) {
	switch p.Kind() {
	case packets.Disconnect:
		s.Logger.Infof("[%s] goodbye, %s", s.Name, c.RemoteAddr())
		return false, nil

	case packets.Message:
		body := string(bytes.StripPadding(p.Body[:]))
		s.Logger.Infof("[%s] %s: %s", s.Name, c.RemoteAddr(), body)

		if s.DB != nil {
			if err := data.RecordMessage(s.DB, c.SessionID, body); err != nil {
				s.Logger.Warnf("failed to record message from %s: %s", c.RemoteAddr(), err)
			}
		}

		if err := c.SendPacket(packets.Ack, nil); err != nil {
			return false, err
		}
		return true, nil

	default:
		// Unknown kinds are ignored rather than treated as a protocol error.
		s.Logger.Debugf("[%s] ignoring packet of unknown kind %#x from %s", s.Name, p.Kind(), c.RemoteAddr())
		return true, nil
	}
}

// ReleaseClient stamps the session record closed.
func (s *Server) ReleaseClient(c *client.Client) {
	if s.DB != nil && c.SessionID != 0 {
		if err := data.CloseSession(s.DB, c.SessionID); err != nil {
			s.Logger.Warnf("failed to close session %d: %s", c.SessionID, err)
		}
	}
}

package client

import (
	"net"
	"testing"
	"time"

	"github.com/mvollen/pylon/internal/core/bytes"
	"github.com/mvollen/pylon/internal/packets"
)

// Opens a loopback listener and returns both ends of one established
// connection.
func connectedPair(t *testing.T) (*Client, net.Conn) {
	t.Helper()

	listener, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatal("failed to open test listener:", err)
	}
	t.Cleanup(func() { _ = listener.Close() })

	connCh := make(chan net.Conn, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		connCh <- conn
	}()

	peer, err := net.Dial("tcp", listener.Addr().String())
	if err != nil {
		t.Fatal("failed to dial test listener:", err)
	}
	t.Cleanup(func() { _ = peer.Close() })

	serverSide := <-connCh
	c := NewClient(serverSide.(*net.TCPConn))
	t.Cleanup(func() { _ = c.Close() })

	return c, peer
}

func TestClient_SendPacket(t *testing.T) {
	c, peer := connectedPair(t)

	if err := c.SendPacket(packets.Message, []byte("ping")); err != nil {
		t.Fatal("SendPacket() returned error:", err)
	}

	buffer := make([]byte, packets.PacketSize)
	received := 0
	for received < packets.PacketSize {
		n, err := peer.Read(buffer[received:])
		if err != nil {
			t.Fatal("failed to read frame from peer side:", err)
		}
		received += n
	}

	p := packets.FromBytes(buffer)
	if p.Kind() != packets.Message {
		t.Errorf("received kind = %#x, expected %#x", p.Kind(), packets.Message)
	}
	if body := string(bytes.StripPadding(p.Body[:])); body != "ping" {
		t.Errorf("received body = %q, expected %q", body, "ping")
	}
}

func TestClient_ReceivePacket(t *testing.T) {
	c, peer := connectedPair(t)

	data, _ := bytes.FromStruct(packets.New(packets.Disconnect, nil))
	if _, err := peer.Write(data); err != nil {
		t.Fatal("failed to write frame from peer side:", err)
	}

	buffer := make([]byte, packets.PacketSize)
	n, p, err := c.ReceivePacket(buffer, time.Second)
	if err != nil {
		t.Fatal("ReceivePacket() returned error:", err)
	}
	if n <= 0 {
		t.Fatal("ReceivePacket() read no data")
	}
	if p.Kind() != packets.Disconnect {
		t.Errorf("received kind = %#x, expected %#x", p.Kind(), packets.Disconnect)
	}
}

func TestClient_ReceivePacketTimeoutIsTransient(t *testing.T) {
	c, _ := connectedPair(t)

	buffer := make([]byte, packets.PacketSize)
	n, p, err := c.ReceivePacket(buffer, 20*time.Millisecond)

	if err != nil {
		t.Error("expected a quiet interval to not be an error, got:", err)
	}
	if n != 0 || p != nil {
		t.Errorf("expected no data, got n = %d, packet = %v", n, p)
	}
}

func TestClient_ReceivePacketClosedPeer(t *testing.T) {
	c, peer := connectedPair(t)

	if err := peer.Close(); err != nil {
		t.Fatal("failed to close peer side:", err)
	}

	buffer := make([]byte, packets.PacketSize)
	_, _, err := c.ReceivePacket(buffer, time.Second)
	if err == nil {
		t.Error("expected an error reading from a closed peer")
	}
}

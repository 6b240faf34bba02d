// Packet layout and kind constants shared by the server and any clients.
package packets

const (
	// PacketSize is the fixed on-wire size of every frame.
	PacketSize = 1024
	// HeaderSize is the number of bytes reserved for the header.
	HeaderSize = 1
	// BodySize is the remaining space available for a text payload.
	BodySize = PacketSize - HeaderSize

	// HeaderIndex is the offset of the kind byte within the header.
	HeaderIndex = 0
)

// Packet kinds. The numeric values are part of the wire contract and must
// match whatever clients have compiled in.
const (
	Disconnect uint8 = 0x00
	Message    uint8 = 0x01
	Ack        uint8 = 0x02
)

// Packet is a raw-layout overlay of one frame. The field order mirrors the
// wire layout so that instances can be serialized with bytes.FromStruct.
type Packet struct {
	Header [HeaderSize]uint8
	Body   [BodySize]uint8
}

// New builds a Packet of the provided kind. Bodies longer than BodySize
// are truncated; control kinds are typically sent with a nil body.
func New(kind uint8, body []byte) *Packet {
	p := &Packet{}
	p.Header[HeaderIndex] = kind
	copy(p.Body[:], body)
	return p
}

// FromBytes reinterprets up to PacketSize bytes of data as a Packet. Short
// reads are tolerated; any bytes not covered by data are left zeroed.
func FromBytes(data []byte) *Packet {
	p := &Packet{}
	if len(data) == 0 {
		return p
	}
	p.Header[HeaderIndex] = data[HeaderIndex]
	if len(data) > HeaderSize {
		copy(p.Body[:], data[HeaderSize:])
	}
	return p
}

func (p *Packet) Kind() uint8 { return p.Header[HeaderIndex] }

// KindName returns a human-readable name for the packet's kind, used in logs.
func (p *Packet) KindName() string {
	switch p.Kind() {
	case Disconnect:
		return "DISCONNECT"
	case Message:
		return "MESSAGE"
	case Ack:
		return "ACK"
	default:
		return "UNKNOWN"
	}
}

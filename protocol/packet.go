package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Packet represents a frame of data transferred over the radio link.
// Layout: SenderID(1) | MsgID(2) | Type(1) | Payload(24) | Padding(4)
// MsgID is little-endian. Total size is always PacketSize bytes.

type MessageType uint8

const (
	TypeData       MessageType = 0
	TypeAck        MessageType = 1
	TypeSensorData MessageType = 2
	TypeCommand    MessageType = 3
	TypeStatus     MessageType = 4
)

func (t MessageType) String() string {
	switch t {
	case TypeData:
		return "data"
	case TypeAck:
		return "ack"
	case TypeSensorData:
		return "sensor_data"
	case TypeCommand:
		return "command"
	case TypeStatus:
		return "status"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

type Packet struct {
	SenderID uint8
	MsgID    uint16
	Type     MessageType
	Payload  [TextSize]byte
}

// NewPacket builds a packet carrying text. Text longer than TextSize is
// truncated to exactly TextSize bytes and is then not NUL-terminated.
func NewPacket(sender uint8, id uint16, t MessageType, text string) Packet {
	p := Packet{SenderID: sender, MsgID: id, Type: t}
	copy(p.Payload[:], text)
	return p
}

// Text returns the payload up to the first NUL byte.
func (p *Packet) Text() string {
	if i := bytes.IndexByte(p.Payload[:], 0); i >= 0 {
		return string(p.Payload[:i])
	}
	return string(p.Payload[:])
}

// EncodePacket serialises a Packet into exactly PacketSize on-air bytes.
func EncodePacket(p *Packet) []byte {
	data := make([]byte, PacketSize)
	if p == nil {
		return data
	}

	data[0] = p.SenderID
	binary.LittleEndian.PutUint16(data[1:3], p.MsgID)
	data[3] = byte(p.Type)
	copy(data[HeaderSize:WireSize], p.Payload[:])

	return data
}

// DecodePacket parses on-air bytes. It returns nil when fewer than WireSize
// bytes are present. Unknown type codes are kept as-is.
func DecodePacket(data []byte) *Packet {
	if len(data) < WireSize {
		return nil
	}

	p := &Packet{
		SenderID: data[0],
		MsgID:    binary.LittleEndian.Uint16(data[1:3]),
		Type:     MessageType(data[3]),
	}
	copy(p.Payload[:], data[HeaderSize:WireSize])

	return p
}

package protocol

// Generic radio & protocol constants (platform independent). All higher layers should depend on this file.
const (
	// Packet sizing
	// Layout:
	//   SenderID (1) | MsgID (2, little-endian) | Type (1) | Payload (24) | Padding (4)
	// Every packet on air is exactly PacketSize bytes, the transceiver's fixed payload width.

	SenderFieldSize = 1
	MsgIDFieldSize  = 2
	TypeFieldSize   = 1

	HeaderSize = SenderFieldSize + MsgIDFieldSize + TypeFieldSize // 4 bytes

	// Text payload carried by every packet
	TextSize = 24

	// Meaningful bytes of a packet; the remainder up to PacketSize is zero padding
	WireSize = HeaderSize + TextSize // 28 bytes

	// Fixed payload width configured on the transceiver
	PacketSize = 32

	// Link address width in bytes
	AddressWidth = 5

	// Number of peer slots (reception pipes) on a gateway
	MaxPeers = 6

	// RF defaults
	DefaultChannel     = 76
	DefaultRetryDelay  = 5
	DefaultRetryCount  = 15
	MaxChannel         = 125
	DefaultQueueDepth  = 8
	DefaultMaxRetries  = 3
	DefaultStatusText  = "alive"
	DefaultSettleDelay = 5 // ms

	// Timeouts / intervals (milliseconds)
	RetryInterval  = 100
	StatusInterval = 5000
	CheckInterval  = 10000
	PeerTimeout    = 60000
)

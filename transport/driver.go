package transport

import (
	"time"

	proto "github.com/ystepanoff/rf24link/protocol"
)

type DataRate uint8

const (
	DataRate1Mbps DataRate = iota
	DataRate2Mbps
	DataRate250Kbps
)

type PALevel uint8

const (
	PAMin PALevel = iota
	PALow
	PAHigh
	PAMax
)

// RadioConfig is applied once when a node starts.
type RadioConfig struct {
	Channel     uint8
	DataRate    DataRate
	PALevel     PALevel
	PayloadSize uint8
	RetryDelay  uint8 // hardware auto-retransmit delay, 250us steps
	RetryCount  uint8 // hardware auto-retransmit count
	AutoAck     bool
}

// DefaultRadioConfig returns the settings the link runs with unless told otherwise.
func DefaultRadioConfig() RadioConfig {
	return RadioConfig{
		Channel:     proto.DefaultChannel,
		DataRate:    DataRate1Mbps,
		PALevel:     PALow,
		PayloadSize: proto.PacketSize,
		RetryDelay:  proto.DefaultRetryDelay,
		RetryCount:  proto.DefaultRetryCount,
	}
}

// Transceiver is the interface that wraps the basic radio operations. Every
// call is synchronous and made from the tick goroutine only.
type Transceiver interface {
	Configure(cfg RadioConfig) error
	OpenWritingPipe(addr proto.Address)
	OpenReadingPipe(pipe uint8, addr proto.Address)
	StartListening()
	StopListening()
	// Available reports whether a packet is buffered and on which pipe it arrived.
	Available() (pipe uint8, ok bool)
	Read() []byte
	Write(data []byte) bool
	PowerDown()
	PowerUp()
}

// Clock is the engine's only source of time.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock reads the wall clock.
var SystemClock Clock = systemClock{}

package protocol

import "errors"

var (
	ErrRadioInit      = errors.New("radio hardware not responding")
	ErrInvalidPeer    = errors.New("invalid peer slot (valid range: 0-5)")
	ErrInvalidAddress = errors.New("invalid link address")
	ErrInvalidChannel = errors.New("invalid channel (valid range: 0-125)")

	ErrInvalidPayloadSize = errors.New("payload size must equal PacketSize")
)

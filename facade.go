// Package rf24link is the entry point to the gateway/hub messaging layer.
// It re-exports the types most programs need so they can import a single
// package; the protocol and transport packages remain available for finer
// control.
package rf24link

import (
	"github.com/ystepanoff/rf24link/protocol"
	"github.com/ystepanoff/rf24link/transport"
)

// Constructors backed by a concrete radio live in constructors_host.go.

type (
	Address         = protocol.Address
	Packet          = protocol.Packet
	MessageType     = protocol.MessageType
	Role            = protocol.Role
	Liveness        = protocol.Liveness
	Registry        = protocol.Registry
	Node            = transport.Node
	Gateway         = transport.Gateway
	Hub             = transport.Hub
	GatewayConfig   = transport.GatewayConfig
	HubConfig       = transport.HubConfig
	HubRegistration = transport.HubRegistration
	Option          = transport.Option
)

// Errors exposed in the public API
var (
	ErrRadioInit      = protocol.ErrRadioInit
	ErrInvalidPeer    = protocol.ErrInvalidPeer
	ErrInvalidAddress = protocol.ErrInvalidAddress
	ErrInvalidChannel = protocol.ErrInvalidChannel

	ErrInvalidPayloadSize = protocol.ErrInvalidPayloadSize
)

// Options accepted by the constructors
var (
	WithLogger     = transport.WithLogger
	WithMetrics    = transport.WithMetrics
	WithRegisterer = transport.WithRegisterer
	WithClock      = transport.WithClock
)

// Constants exposed in the public API
const (
	RoleGateway = protocol.RoleGateway
	RoleHub     = protocol.RoleHub

	Reachable   = protocol.Reachable
	Unreachable = protocol.Unreachable

	TypeData       = protocol.TypeData
	TypeAck        = protocol.TypeAck
	TypeSensorData = protocol.TypeSensorData
	TypeCommand    = protocol.TypeCommand
	TypeStatus     = protocol.TypeStatus
)

// Resolve maps a symbolic name to its 5-byte link address using the
// built-in registry.
func Resolve(name string) Address { return protocol.Resolve(name) }

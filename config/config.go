// Package config loads the startup configuration of a gateway or hub node
// from a JSON file and turns it into transport settings. It is read once;
// nothing here changes after the node starts.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	proto "github.com/ystepanoff/rf24link/protocol"
	"github.com/ystepanoff/rf24link/transport"
)

var (
	ErrUnknownMode      = errors.New("mode must be \"gateway\" or \"hub\"")
	ErrNoGatewayAddress = errors.New("hub mode requires gatewayAddress")
	ErrNoHubs           = errors.New("gateway mode requires at least one hub")
	ErrDuplicatePipe    = errors.New("pipe registered twice")
	ErrDuplicateAddress = errors.New("address registered twice")
)

// Hub is one (pipe, symbolic address) registration on a gateway.
type Hub struct {
	Pipe    int    `json:"pipe"`    // Reception pipe, 0-5
	Address string `json:"address"` // Symbolic name resolved through the address registry
}

// Config holds the node settings loaded from a JSON file. Durations are in
// milliseconds; zero values take the defaults below.
type Config struct {
	Mode           string `json:"mode"`           // "gateway" or "hub"
	Channel        int    `json:"channel"`        // RF channel 0-125 (default: 76)
	GatewayAddress string `json:"gatewayAddress"` // Hub only: name of the gateway link address
	ListenAddress  string `json:"listenAddress"`  // Hub only: own address (default: gatewayAddress)
	HubID          int    `json:"hubId"`          // Hub only: slot the gateway assigned to this hub
	Hubs           []Hub  `json:"hubs"`           // Gateway only: pipe registrations

	CheckInterval  int `json:"checkInterval"`  // Liveness check period (default: 10000)
	PeerTimeout    int `json:"peerTimeout"`    // Silence before a hub is unreachable (default: 60000)
	StatusInterval int `json:"statusInterval"` // Hub status period (default: 5000)
	RetryInterval  int `json:"retryInterval"`  // Retry pass period (default: 100)
	MaxRetries     int `json:"maxRetries"`     // Resends before a message is dropped (default: 3)
	MaxQueueDepth  int `json:"maxQueueDepth"`  // Unacknowledged messages per peer (default: 8)
}

// Load reads and parses the file at path, applies defaults and validates
// the result against registry.
func Load(path string, registry *proto.Registry) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b, registry)
}

// Parse is Load without the file system.
func Parse(b []byte, registry *proto.Registry) (*Config, error) {
	var config Config
	if err := json.Unmarshal(b, &config); err != nil {
		return nil, err
	}
	config.applyDefaults()
	if err := config.Validate(registry); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Channel == 0 {
		c.Channel = proto.DefaultChannel
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = proto.CheckInterval
	}
	if c.PeerTimeout <= 0 {
		c.PeerTimeout = proto.PeerTimeout
	}
	if c.StatusInterval <= 0 {
		c.StatusInterval = proto.StatusInterval
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = proto.RetryInterval
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = proto.DefaultMaxRetries
	}
	if c.MaxQueueDepth <= 0 {
		c.MaxQueueDepth = proto.DefaultQueueDepth
	}
}

// Validate checks everything the protocol engine assumes about its peer
// table: pipes in range and unique, addresses non-zero and unique.
func (c *Config) Validate(registry *proto.Registry) error {
	if c.Channel < 0 || c.Channel > proto.MaxChannel {
		return proto.ErrInvalidChannel
	}
	if c.MaxRetries > 255 {
		return fmt.Errorf("maxRetries %d out of range", c.MaxRetries)
	}

	role, ok := proto.ParseRole(c.Mode)
	if !ok {
		return fmt.Errorf("%q: %w", c.Mode, ErrUnknownMode)
	}

	switch role {
	case proto.RoleGateway:
		if len(c.Hubs) == 0 {
			return ErrNoHubs
		}
		pipes := make(map[int]bool, len(c.Hubs))
		addrs := make(map[proto.Address]string, len(c.Hubs))
		for _, h := range c.Hubs {
			if h.Pipe < 0 || h.Pipe >= proto.MaxPeers {
				return fmt.Errorf("hub %q pipe %d: %w", h.Address, h.Pipe, proto.ErrInvalidPeer)
			}
			if pipes[h.Pipe] {
				return fmt.Errorf("pipe %d: %w", h.Pipe, ErrDuplicatePipe)
			}
			pipes[h.Pipe] = true

			addr := registry.Resolve(h.Address)
			if addr.IsZero() {
				return fmt.Errorf("hub %q: %w", h.Address, proto.ErrInvalidAddress)
			}
			if prev, dup := addrs[addr]; dup {
				return fmt.Errorf("hub %q resolves to %s like %q: %w", h.Address, addr, prev, ErrDuplicateAddress)
			}
			addrs[addr] = h.Address
		}

	case proto.RoleHub:
		if c.GatewayAddress == "" || registry.Resolve(c.GatewayAddress).IsZero() {
			return ErrNoGatewayAddress
		}
		if c.HubID < 0 || c.HubID >= proto.MaxPeers {
			return fmt.Errorf("hubId %d: %w", c.HubID, proto.ErrInvalidPeer)
		}
	}
	return nil
}

// Role returns the configured role. Only meaningful after validation.
func (c *Config) Role() proto.Role {
	r, _ := proto.ParseRole(c.Mode)
	return r
}

func (c *Config) radio() transport.RadioConfig {
	rc := transport.DefaultRadioConfig()
	rc.Channel = uint8(c.Channel)
	return rc
}

func (c *Config) delivery() transport.DeliveryConfig {
	return transport.DeliveryConfig{
		MaxRetries:    uint8(c.MaxRetries),
		MaxQueueDepth: c.MaxQueueDepth,
		RetryInterval: ms(c.RetryInterval),
	}
}

// GatewayConfig resolves every hub registration through registry.
func (c *Config) GatewayConfig(registry *proto.Registry) transport.GatewayConfig {
	hubs := make([]transport.HubRegistration, 0, len(c.Hubs))
	for _, h := range c.Hubs {
		hubs = append(hubs, transport.HubRegistration{
			Pipe:    uint8(h.Pipe),
			Address: registry.Resolve(h.Address),
			Name:    h.Address,
		})
	}
	return transport.GatewayConfig{
		Radio:         c.radio(),
		Hubs:          hubs,
		Delivery:      c.delivery(),
		CheckInterval: ms(c.CheckInterval),
		PeerTimeout:   ms(c.PeerTimeout),
	}
}

// HubConfig resolves the gateway and listen addresses through registry.
func (c *Config) HubConfig(registry *proto.Registry) transport.HubConfig {
	hc := transport.HubConfig{
		Radio:          c.radio(),
		ID:             uint8(c.HubID),
		GatewayAddress: registry.Resolve(c.GatewayAddress),
		Delivery:       c.delivery(),
		StatusInterval: ms(c.StatusInterval),
	}
	if c.ListenAddress != "" {
		hc.ListenAddress = registry.Resolve(c.ListenAddress)
	}
	return hc
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

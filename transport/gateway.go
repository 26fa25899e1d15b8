package transport

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	proto "github.com/ystepanoff/rf24link/protocol"
)

// HubRegistration binds one hub's link address to a reception pipe.
type HubRegistration struct {
	Pipe    uint8
	Address proto.Address
	Name    string
}

type GatewayConfig struct {
	Radio    RadioConfig
	Hubs     []HubRegistration
	Delivery DeliveryConfig

	CheckInterval time.Duration
	PeerTimeout   time.Duration
	SettleDelay   time.Duration
}

// Gateway coordinates up to MaxPeers hubs, one per reception pipe.
type Gateway struct {
	core
	monitor   *Monitor
	onMessage func(slot uint8, p proto.Packet)
}

// NewGatewayWithDriver builds a gateway over radio. Registrations are
// validated here and never change afterwards.
func NewGatewayWithDriver(cfg GatewayConfig, radio Transceiver, opts ...Option) (*Gateway, error) {
	o := resolveOptions(proto.RoleGateway.String(), opts)
	g := &Gateway{}
	g.core.setup(radio, cfg.Radio, cfg.Delivery, o)

	now := o.clock.Now()
	seen := make(map[proto.Address]uint8, len(cfg.Hubs))
	for _, h := range cfg.Hubs {
		if prev, dup := seen[h.Address]; dup {
			return nil, fmt.Errorf("pipe %d: address %s already used by pipe %d: %w",
				h.Pipe, h.Address, prev, proto.ErrInvalidAddress)
		}
		if g.peers.Get(h.Pipe) != nil {
			return nil, fmt.Errorf("pipe %d registered twice: %w", h.Pipe, proto.ErrInvalidPeer)
		}
		if err := g.peers.register(h.Pipe, h.Address, now); err != nil {
			return nil, fmt.Errorf("pipe %d: %w", h.Pipe, err)
		}
		seen[h.Address] = h.Pipe
	}

	g.monitor = newMonitor(radio, &g.peers, cfg.CheckInterval, cfg.PeerTimeout, cfg.SettleDelay, o)
	return g, nil
}

func (g *Gateway) Role() proto.Role { return proto.RoleGateway }

// Begin configures the transceiver and opens a reading pipe per hub.
func (g *Gateway) Begin() error {
	return g.begin(func() {
		for slot := range g.peers {
			if p := &g.peers[slot]; p.Active {
				g.radio.OpenReadingPipe(uint8(slot), p.Address)
			}
		}
		// Hubs get a grace period of one full timeout from startup.
		now := g.clock.Now()
		for slot := range g.peers {
			g.peers[slot].LastSeen = now
		}
		g.monitor.lastCheck = now
		g.delivery.lastRetry = now
	})
}

// Tick drains inbound packets, runs a retry pass when due and a liveness
// check when due.
func (g *Gateway) Tick() {
	if !g.ready() {
		return
	}
	g.drain(g.handle)
	now := g.clock.Now()
	g.delivery.MaybeRetry(now)
	g.monitor.MaybeCheck(now)
}

func (g *Gateway) handle(pipe uint8, p *proto.Packet) {
	peer := g.peers.Get(pipe)
	if peer == nil {
		g.discard("invalid_hub", p, zap.Uint8("pipe", pipe))
		return
	}

	peer.UpdateLastSeen(g.clock.Now())
	g.metrics.PacketsReceived.WithLabelValues(p.Type.String()).Inc()

	switch p.Type {
	case proto.TypeAck:
		g.delivery.OnAck(pipe, p.MsgID)

	case proto.TypeSensorData, proto.TypeStatus:
		peer.lastMessage = p.Text()
		peer.hasMessage = true
		g.log.Debug("data from hub",
			zap.Uint8("slot", pipe),
			zap.Uint16("msg_id", p.MsgID),
			zap.Stringer("type", p.Type),
			zap.String("payload", peer.lastMessage))

		ack := proto.NewPacket(pipe, p.MsgID, proto.TypeAck, "")
		if !g.delivery.SendImmediate(pipe, &ack) {
			g.log.Warn("ack send failed", zap.Uint8("slot", pipe), zap.Uint16("msg_id", p.MsgID))
		}

		if g.onMessage != nil {
			g.onMessage(pipe, *p)
		}

	default:
		g.discard("unsupported_type", p, zap.Uint8("pipe", pipe))
	}
}

// SendToPeer sends text to the hub in slot as a command and queues it for
// retries. It returns false for an unknown slot or a failed transmit.
func (g *Gateway) SendToPeer(slot uint8, text string) bool {
	if !g.ready() {
		return false
	}
	_, ok := g.delivery.EnqueueAndSend(slot, slot, proto.TypeCommand, text)
	return ok
}

// LastMessage returns the last sensor or status payload received from slot.
func (g *Gateway) LastMessage(slot uint8) (string, bool) {
	peer := g.peers.Get(slot)
	if peer == nil || !peer.hasMessage {
		return "", false
	}
	return peer.lastMessage, true
}

// PeerLiveness reports whether slot has been heard from within the timeout.
// Unknown slots are unreachable.
func (g *Gateway) PeerLiveness(slot uint8) proto.Liveness {
	return g.monitor.Liveness(slot, g.clock.Now())
}

// OnMessage registers a callback for sensor and status packets. It runs on
// the tick goroutine after the packet has been acknowledged.
func (g *Gateway) OnMessage(fn func(slot uint8, p proto.Packet)) { g.onMessage = fn }

// Monitor exposes the liveness monitor for inspection.
func (g *Gateway) Monitor() *Monitor { return g.monitor }

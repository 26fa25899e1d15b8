package transport

import (
	"time"

	"go.uber.org/zap"

	proto "github.com/ystepanoff/rf24link/protocol"
)

// gatewaySlot is where a hub keeps its single peer, the gateway.
const gatewaySlot = 0

// hubReadingPipe is the pipe a hub listens on.
const hubReadingPipe = 1

type HubConfig struct {
	Radio RadioConfig
	// ID is the slot the gateway assigned to this hub; it is stamped on
	// every outbound packet.
	ID             uint8
	GatewayAddress proto.Address
	// ListenAddress defaults to GatewayAddress, i.e. one address per link.
	ListenAddress proto.Address
	Delivery      DeliveryConfig

	StatusInterval time.Duration
	StatusText     string
}

// Hub exchanges data with exactly one gateway and announces itself with a
// periodic status packet.
type Hub struct {
	core
	id             uint8
	listen         proto.Address
	statusInterval time.Duration
	statusText     string
	lastStatus     time.Time

	hasSent     bool
	lastSentID  uint16
	lastAckedID uint16
	onCommand   func(p proto.Packet)
}

func NewHubWithDriver(cfg HubConfig, radio Transceiver, opts ...Option) (*Hub, error) {
	o := resolveOptions(proto.RoleHub.String(), opts)
	if cfg.ID >= proto.MaxPeers {
		return nil, proto.ErrInvalidPeer
	}

	h := &Hub{
		id:             cfg.ID,
		listen:         cfg.ListenAddress,
		statusInterval: cfg.StatusInterval,
		statusText:     cfg.StatusText,
	}
	h.core.setup(radio, cfg.Radio, cfg.Delivery, o)

	if err := h.peers.register(gatewaySlot, cfg.GatewayAddress, o.clock.Now()); err != nil {
		return nil, err
	}
	if h.listen.IsZero() {
		h.listen = cfg.GatewayAddress
	}
	if h.statusInterval <= 0 {
		h.statusInterval = proto.StatusInterval * time.Millisecond
	}
	if h.statusText == "" {
		h.statusText = proto.DefaultStatusText
	}
	return h, nil
}

func (h *Hub) Role() proto.Role { return proto.RoleHub }

// Begin configures the transceiver, points the writing pipe at the gateway
// and starts listening on the hub's own address.
func (h *Hub) Begin() error {
	return h.begin(func() {
		gw := &h.peers[gatewaySlot]
		h.radio.OpenWritingPipe(gw.Address)
		h.radio.OpenReadingPipe(hubReadingPipe, h.listen)

		now := h.clock.Now()
		gw.LastSeen = now
		h.lastStatus = now
		h.delivery.lastRetry = now
	})
}

// Tick drains inbound packets, runs a retry pass when due and emits a
// status packet when due.
func (h *Hub) Tick() {
	if !h.ready() {
		return
	}
	h.drain(h.handle)
	now := h.clock.Now()
	h.delivery.MaybeRetry(now)
	h.maybeSendStatus(now)
}

func (h *Hub) maybeSendStatus(now time.Time) {
	if now.Sub(h.lastStatus) < h.statusInterval {
		return
	}
	h.lastStatus = now
	if !h.SendToGateway(h.statusText, proto.TypeStatus) {
		h.log.Warn("status send failed")
	}
}

// handle treats every inbound packet as coming from the gateway; the pipe
// is not consulted.
func (h *Hub) handle(_ uint8, p *proto.Packet) {
	h.peers[gatewaySlot].UpdateLastSeen(h.clock.Now())
	h.metrics.PacketsReceived.WithLabelValues(p.Type.String()).Inc()

	switch p.Type {
	case proto.TypeAck:
		if !h.delivery.OnAck(gatewaySlot, p.MsgID) {
			return
		}
		h.lastAckedID = p.MsgID
		if h.hasSent && p.MsgID == h.lastSentID {
			h.log.Debug("delivery confirmed", zap.Uint16("msg_id", p.MsgID))
		}

	case proto.TypeCommand:
		ack := proto.NewPacket(h.id, p.MsgID, proto.TypeAck, "")
		if !h.delivery.SendImmediate(gatewaySlot, &ack) {
			h.log.Warn("ack send failed", zap.Uint16("msg_id", p.MsgID))
		}
		h.log.Debug("command received",
			zap.Uint16("msg_id", p.MsgID),
			zap.String("payload", p.Text()))
		if h.onCommand != nil {
			h.onCommand(*p)
		}

	default:
		h.discard("unsupported_type", p)
	}
}

// SendToGateway sends text with the given type and queues it for retries.
func (h *Hub) SendToGateway(text string, t proto.MessageType) bool {
	if !h.ready() {
		return false
	}
	id, ok := h.delivery.EnqueueAndSend(gatewaySlot, h.id, t, text)
	if ok {
		h.hasSent = true
		h.lastSentID = id
	}
	return ok
}

// OnCommand registers a callback for commands from the gateway. It runs on
// the tick goroutine after the command has been acknowledged.
func (h *Hub) OnCommand(fn func(p proto.Packet)) { h.onCommand = fn }

func (h *Hub) ID() uint8 { return h.id }

// LastSentID is the id of the most recent message the gateway accepted
// for transmission.
func (h *Hub) LastSentID() uint16 { return h.lastSentID }

// LastAckedID is the id of the most recent message the gateway acknowledged.
func (h *Hub) LastAckedID() uint16 { return h.lastAckedID }

// GatewayLastSeen returns when the gateway was last heard from.
func (h *Hub) GatewayLastSeen() time.Time { return h.peers[gatewaySlot].LastSeen }

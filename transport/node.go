package transport

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ystepanoff/rf24link/internal/telemetry"
	proto "github.com/ystepanoff/rf24link/protocol"
)

// Node is the contract shared by both roles. The scheduler calls Begin once
// and then Tick repeatedly from a single goroutine.
type Node interface {
	Begin() error
	Tick()
	Role() proto.Role
}

var (
	_ Node = (*Gateway)(nil)
	_ Node = (*Hub)(nil)
)

// core is the state both roles share: the radio, the peer arena and the
// delivery engine built on top of it.
type core struct {
	radio    Transceiver
	radioCfg RadioConfig
	peers    PeerTable
	delivery *Delivery
	clock    Clock
	log      *zap.Logger
	metrics  *telemetry.Metrics

	started bool
	failed  bool
}

func (c *core) setup(radio Transceiver, cfg RadioConfig, dcfg DeliveryConfig, o *options) {
	switch {
	case cfg == (RadioConfig{}):
		cfg = DefaultRadioConfig()
	case cfg.PayloadSize == 0:
		cfg.PayloadSize = proto.PacketSize
	}
	c.radio = radio
	c.radioCfg = cfg
	c.clock = o.clock
	c.log = o.logger
	c.metrics = o.metrics
	c.delivery = newDelivery(radio, &c.peers, dcfg, o)
}

// begin configures the transceiver, lets the role open its pipes and
// starts listening. A configuration failure marks the node failed for good.
func (c *core) begin(openPipes func()) error {
	if c.failed {
		return proto.ErrRadioInit
	}
	if c.radioCfg.Channel > proto.MaxChannel {
		c.failed = true
		return proto.ErrInvalidChannel
	}
	if c.radioCfg.PayloadSize != proto.PacketSize {
		c.failed = true
		return fmt.Errorf("payload size %d: %w", c.radioCfg.PayloadSize, proto.ErrInvalidPayloadSize)
	}
	if err := c.radio.Configure(c.radioCfg); err != nil {
		c.failed = true
		c.log.Error("radio hardware not responding!", zap.Error(err))
		return fmt.Errorf("%w: %w", proto.ErrRadioInit, err)
	}

	openPipes()
	c.radio.StartListening()
	c.started = true

	c.log.Info("radio initialized successfully",
		zap.Uint8("channel", c.radioCfg.Channel),
		zap.Uint8("payload_size", c.radioCfg.PayloadSize))
	return nil
}

func (c *core) ready() bool { return c.started && !c.failed }

// Failed reports whether the transceiver failed to initialise.
func (c *core) Failed() bool { return c.failed }

// Delivery exposes the retry engine for inspection.
func (c *core) Delivery() *Delivery { return c.delivery }

// Peer returns a copy of the record in slot.
func (c *core) Peer(slot uint8) (Peer, bool) {
	if p := c.peers.Get(slot); p != nil {
		return *p, true
	}
	return Peer{}, false
}

// drain reads every packet the transceiver currently holds and hands each
// decoded one to handle. The loop ends when the hardware FIFO is empty.
func (c *core) drain(handle func(pipe uint8, p *proto.Packet)) int {
	n := 0
	for {
		pipe, ok := c.radio.Available()
		if !ok {
			return n
		}
		data := c.radio.Read()
		n++

		p := proto.DecodePacket(data)
		if p == nil {
			c.log.Warn("malformed packet", zap.Uint8("pipe", pipe), zap.Int("len", len(data)))
			c.metrics.PacketsDiscarded.WithLabelValues("malformed").Inc()
			continue
		}
		handle(pipe, p)
	}
}

func (c *core) discard(reason string, p *proto.Packet, fields ...zap.Field) {
	c.metrics.PacketsDiscarded.WithLabelValues(reason).Inc()
	fields = append(fields,
		zap.String("reason", reason),
		zap.Uint8("sender", p.SenderID),
		zap.Uint16("msg_id", p.MsgID),
		zap.Stringer("type", p.Type))
	c.log.Warn("packet discarded", fields...)
}

package transport

import (
	"time"

	"go.uber.org/zap"

	"github.com/ystepanoff/rf24link/internal/telemetry"
	proto "github.com/ystepanoff/rf24link/protocol"
)

// Delivery owns the per-peer retry queues. A message is queued only after
// the transceiver has accepted it once; from then on it is resent by retry
// passes until acknowledged or out of budget.
type Delivery struct {
	radio   Transceiver
	peers   *PeerTable
	clock   Clock
	log     *zap.Logger
	metrics *telemetry.Metrics

	maxRetries    uint8
	maxQueue      int
	retryInterval time.Duration
	lastRetry     time.Time
}

// DeliveryConfig bounds the retry behaviour.
type DeliveryConfig struct {
	MaxRetries    uint8
	MaxQueueDepth int
	RetryInterval time.Duration
}

func (c DeliveryConfig) withDefaults() DeliveryConfig {
	if c.MaxRetries == 0 {
		c.MaxRetries = proto.DefaultMaxRetries
	}
	if c.MaxQueueDepth <= 0 {
		c.MaxQueueDepth = proto.DefaultQueueDepth
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = proto.RetryInterval * time.Millisecond
	}
	return c
}

func newDelivery(radio Transceiver, peers *PeerTable, cfg DeliveryConfig, o *options) *Delivery {
	cfg = cfg.withDefaults()
	return &Delivery{
		radio:         radio,
		peers:         peers,
		clock:         o.clock,
		log:           o.logger.Named("delivery"),
		metrics:       o.metrics,
		maxRetries:    cfg.MaxRetries,
		maxQueue:      cfg.MaxQueueDepth,
		retryInterval: cfg.RetryInterval,
		lastRetry:     o.clock.Now(),
	}
}

// EnqueueAndSend assigns the peer's next message id, transmits once and on
// success queues the packet for retries. The id is returned either way so
// callers can log it; it is consumed even when the transmit fails.
func (d *Delivery) EnqueueAndSend(slot, sender uint8, t proto.MessageType, text string) (uint16, bool) {
	peer := d.peers.Get(slot)
	if peer == nil {
		d.log.Warn("invalid peer or peer not active", zap.Uint8("slot", slot))
		return 0, false
	}
	if len(peer.queue) >= d.maxQueue {
		d.log.Warn("retry queue full",
			zap.Uint8("slot", slot),
			zap.Int("depth", len(peer.queue)))
		return 0, false
	}

	packet := proto.NewPacket(sender, peer.nextID(), t, text)
	if !d.SendImmediate(slot, &packet) {
		d.log.Warn("send failed",
			zap.Uint8("slot", slot),
			zap.Uint16("msg_id", packet.MsgID),
			zap.Stringer("type", packet.Type))
		return packet.MsgID, false
	}

	peer.queue = append(peer.queue, queued{packet: packet})
	d.metrics.QueueDepth.WithLabelValues(telemetry.Slot(slot)).Set(float64(len(peer.queue)))
	return packet.MsgID, true
}

// SendImmediate transmits one packet to the peer in slot without queueing
// it. The radio leaves receive mode for the duration of the write.
func (d *Delivery) SendImmediate(slot uint8, p *proto.Packet) bool {
	peer := d.peers.Get(slot)
	if peer == nil {
		return false
	}

	d.radio.StopListening()
	d.radio.OpenWritingPipe(peer.Address)
	ok := d.radio.Write(proto.EncodePacket(p))
	d.radio.StartListening()

	result := "ok"
	if !ok {
		result = "failed"
	}
	d.metrics.PacketsSent.WithLabelValues(p.Type.String(), result).Inc()
	return ok
}

// OnAck removes the queued message whose id matches. Earlier queued
// messages are left alone. It reports whether anything was removed.
func (d *Delivery) OnAck(slot uint8, msgID uint16) bool {
	peer := d.peers.Get(slot)
	if peer == nil {
		return false
	}

	for i := range peer.queue {
		if peer.queue[i].packet.MsgID != msgID {
			continue
		}
		peer.queue = append(peer.queue[:i], peer.queue[i+1:]...)
		d.metrics.AcksMatched.Inc()
		d.metrics.QueueDepth.WithLabelValues(telemetry.Slot(slot)).Set(float64(len(peer.queue)))
		d.log.Debug("ack received",
			zap.Uint8("slot", slot),
			zap.Uint16("msg_id", msgID))
		return true
	}

	d.log.Debug("ack for unknown message",
		zap.Uint8("slot", slot),
		zap.Uint16("msg_id", msgID))
	return false
}

// MaybeRetry runs a retry pass if at least one retry interval has passed
// since the previous one.
func (d *Delivery) MaybeRetry(now time.Time) bool {
	if now.Sub(d.lastRetry) < d.retryInterval {
		return false
	}
	d.lastRetry = now
	d.RetryPass()
	return true
}

// RetryPass looks at the head of every non-empty queue. A head that has
// used up its budget is dropped; otherwise it is resent and its attempt
// count grows whether or not the transmit succeeded.
func (d *Delivery) RetryPass() {
	for slot := range d.peers {
		peer := &d.peers[slot]
		if !peer.Active || len(peer.queue) == 0 {
			continue
		}

		head := &peer.queue[0]
		if head.attempts >= d.maxRetries {
			d.log.Warn("max retries reached, dropping message",
				zap.Int("slot", slot),
				zap.Uint16("msg_id", head.packet.MsgID),
				zap.Uint8("attempts", head.attempts))
			peer.queue[0] = queued{}
			peer.queue = peer.queue[1:]
			d.metrics.RetryDrops.Inc()
			d.metrics.QueueDepth.WithLabelValues(telemetry.Slot(uint8(slot))).Set(float64(len(peer.queue)))
			continue
		}

		head.attempts++
		d.metrics.Retries.Inc()
		if !d.SendImmediate(uint8(slot), &head.packet) {
			d.log.Warn("retry failed",
				zap.Int("slot", slot),
				zap.Uint16("msg_id", head.packet.MsgID),
				zap.Uint8("attempt", head.attempts))
		}
	}
}

// QueueLen returns the number of unacknowledged messages for slot.
func (d *Delivery) QueueLen(slot uint8) int {
	if peer := d.peers.Get(slot); peer != nil {
		return len(peer.queue)
	}
	return 0
}

// Pending returns the queued message ids for slot, head first.
func (d *Delivery) Pending(slot uint8) []uint16 {
	peer := d.peers.Get(slot)
	if peer == nil {
		return nil
	}
	ids := make([]uint16, len(peer.queue))
	for i, q := range peer.queue {
		ids[i] = q.packet.MsgID
	}
	return ids
}

package transport

import (
	"time"

	"go.uber.org/zap"

	"github.com/ystepanoff/rf24link/internal/telemetry"
	proto "github.com/ystepanoff/rf24link/protocol"
)

// Monitor watches last-seen timestamps on the gateway and power-cycles the
// transceiver when peers go quiet. Recovery is best-effort: it always
// re-registers every active pipe and never checks whether it helped.
type Monitor struct {
	radio   Transceiver
	peers   *PeerTable
	clock   Clock
	log     *zap.Logger
	metrics *telemetry.Metrics

	interval time.Duration
	timeout  time.Duration
	settle   time.Duration

	lastCheck     time.Time
	lastReconnect time.Time
	reconnects    int
}

func newMonitor(radio Transceiver, peers *PeerTable, interval, timeout, settle time.Duration, o *options) *Monitor {
	if interval <= 0 {
		interval = proto.CheckInterval * time.Millisecond
	}
	if timeout <= 0 {
		timeout = proto.PeerTimeout * time.Millisecond
	}
	if settle <= 0 {
		settle = proto.DefaultSettleDelay * time.Millisecond
	}
	return &Monitor{
		radio:     radio,
		peers:     peers,
		clock:     o.clock,
		log:       o.logger.Named("liveness"),
		metrics:   o.metrics,
		interval:  interval,
		timeout:   timeout,
		settle:    settle,
		lastCheck: o.clock.Now(),
	}
}

// MaybeCheck runs Check if a full interval has passed since the last one.
func (m *Monitor) MaybeCheck(now time.Time) bool {
	if now.Sub(m.lastCheck) < m.interval {
		return false
	}
	m.lastCheck = now
	m.Check(now)
	return true
}

// Check flags every active peer not heard from within the timeout and
// returns their slots. If any were flagged and no reconnect happened during
// the current interval, the transceiver is power-cycled.
func (m *Monitor) Check(now time.Time) []uint8 {
	var flagged []uint8
	for slot := range m.peers {
		peer := &m.peers[slot]
		if !peer.Active {
			continue
		}
		label := telemetry.Slot(uint8(slot))
		if peer.IsAlive(now, m.timeout) {
			m.metrics.PeerReachable.WithLabelValues(label).Set(1)
			continue
		}
		m.metrics.PeerReachable.WithLabelValues(label).Set(0)
		flagged = append(flagged, uint8(slot))
		m.log.Warn("hub unreachable",
			zap.Int("slot", slot),
			zap.Stringer("address", peer.Address),
			zap.Duration("silent_for", now.Sub(peer.LastSeen)))
	}

	if len(flagged) > 0 && (m.reconnects == 0 || now.Sub(m.lastReconnect) >= m.interval) {
		m.reconnect(now)
	}
	return flagged
}

func (m *Monitor) reconnect(now time.Time) {
	m.log.Info("attempting radio reconnect")

	m.radio.PowerDown()
	m.clock.Sleep(m.settle)
	m.radio.PowerUp()

	for slot := range m.peers {
		if m.peers[slot].Active {
			m.radio.OpenReadingPipe(uint8(slot), m.peers[slot].Address)
		}
	}
	m.radio.StartListening()

	m.lastReconnect = now
	m.reconnects++
	m.metrics.Reconnects.Inc()
}

// Liveness derives the reachability of slot at now.
func (m *Monitor) Liveness(slot uint8, now time.Time) proto.Liveness {
	if peer := m.peers.Get(slot); peer != nil && peer.IsAlive(now, m.timeout) {
		return proto.Reachable
	}
	return proto.Unreachable
}

// Reconnects returns how many power cycles have been performed.
func (m *Monitor) Reconnects() int { return m.reconnects }

package transport

import (
	"time"

	proto "github.com/ystepanoff/rf24link/protocol"
)

// queued is one in-flight outbound packet and the number of times a retry
// pass has resent it.
type queued struct {
	packet   proto.Packet
	attempts uint8
}

// Peer is the record kept for one slot. Slots are fixed at construction;
// everything else is mutated by traffic.
type Peer struct {
	Address  proto.Address
	Active   bool
	LastSeen time.Time

	nextMsgID   uint16
	queue       []queued
	lastMessage string
	hasMessage  bool
}

// IsAlive reports whether the peer has been heard from within timeout.
func (p *Peer) IsAlive(now time.Time, timeout time.Duration) bool {
	return p.Active && now.Sub(p.LastSeen) < timeout
}

func (p *Peer) UpdateLastSeen(now time.Time) { p.LastSeen = now }

// nextID pre-increments the outbound counter, wrapping at 65536.
func (p *Peer) nextID() uint16 {
	p.nextMsgID++
	return p.nextMsgID
}

// PeerTable is the fixed arena of peer slots, addressed by slot index.
type PeerTable [proto.MaxPeers]Peer

// Get returns the active peer in slot, or nil.
func (t *PeerTable) Get(slot uint8) *Peer {
	if int(slot) >= len(t) || !t[slot].Active {
		return nil
	}
	return &t[slot]
}

// register activates slot with addr. It is only called before the node starts.
func (t *PeerTable) register(slot uint8, addr proto.Address, now time.Time) error {
	if int(slot) >= len(t) {
		return proto.ErrInvalidPeer
	}
	if addr.IsZero() {
		return proto.ErrInvalidAddress
	}
	t[slot] = Peer{Address: addr, Active: true, LastSeen: now}
	return nil
}

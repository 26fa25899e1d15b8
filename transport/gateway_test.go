package transport

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ystepanoff/rf24link/internal/telemetry"
	proto "github.com/ystepanoff/rf24link/protocol"
)

func TestGatewayBeginOpensReadingPipes(t *testing.T) {
	driver := NewMockDriver()
	cfg := GatewayConfig{Hubs: []HubRegistration{
		{Pipe: 1, Address: hub01},
		{Pipe: 4, Address: hub02},
	}}
	g, err := NewGatewayWithDriver(cfg, driver)
	if err != nil {
		t.Fatalf("NewGatewayWithDriver() error = %v", err)
	}
	if err := g.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	if driver.reading[1] != hub01 || driver.reading[4] != hub02 {
		t.Errorf("reading pipes = %v", driver.reading)
	}
	if len(driver.reading) != 2 {
		t.Errorf("opened %d reading pipes, want 2", len(driver.reading))
	}
	if !driver.listened {
		t.Error("radio not listening after Begin()")
	}
	if g.Role() != proto.RoleGateway {
		t.Errorf("Role() = %v, want gateway", g.Role())
	}
}

func TestGatewayRejectsBadRegistrations(t *testing.T) {
	tests := []struct {
		name string
		hubs []HubRegistration
		want error
	}{
		{
			name: "pipe out of range",
			hubs: []HubRegistration{{Pipe: proto.MaxPeers, Address: hub01}},
			want: proto.ErrInvalidPeer,
		},
		{
			name: "zero address",
			hubs: []HubRegistration{{Pipe: 1}},
			want: proto.ErrInvalidAddress,
		},
		{
			name: "duplicate address",
			hubs: []HubRegistration{{Pipe: 1, Address: hub01}, {Pipe: 2, Address: hub01}},
			want: proto.ErrInvalidAddress,
		},
		{
			name: "duplicate pipe",
			hubs: []HubRegistration{{Pipe: 1, Address: hub01}, {Pipe: 1, Address: hub02}},
			want: proto.ErrInvalidPeer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGatewayWithDriver(GatewayConfig{Hubs: tt.hubs}, NewMockDriver())
			if !errors.Is(err, tt.want) {
				t.Errorf("NewGatewayWithDriver() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestGatewayRadioInitFailureIsFatal(t *testing.T) {
	driver := NewMockDriver()
	driver.configErr = errors.New("spi timeout")
	g, err := NewGatewayWithDriver(GatewayConfig{Hubs: []HubRegistration{{Pipe: 1, Address: hub01}}}, driver)
	if err != nil {
		t.Fatalf("NewGatewayWithDriver() error = %v", err)
	}

	if err := g.Begin(); !errors.Is(err, proto.ErrRadioInit) {
		t.Fatalf("Begin() error = %v, want %v", err, proto.ErrRadioInit)
	}
	if !g.Failed() {
		t.Error("Failed() = false after init failure")
	}

	driver.ClearCalls()
	driver.InjectRx(1, proto.NewPacket(1, 1, proto.TypeStatus, "alive"))
	g.Tick()
	if g.SendToPeer(1, "LED_ON") {
		t.Error("SendToPeer() = true on a failed node")
	}
	if calls := driver.Calls(); len(calls) != 0 {
		t.Errorf("failed node touched the radio: %v", calls)
	}
	if err := g.Begin(); !errors.Is(err, proto.ErrRadioInit) {
		t.Errorf("second Begin() error = %v, want %v", err, proto.ErrRadioInit)
	}
}

func TestGatewayKeepsCallerRadioSettings(t *testing.T) {
	driver := NewMockDriver()
	cfg := GatewayConfig{
		Radio: RadioConfig{Channel: 100, DataRate: DataRate250Kbps, PALevel: PAMax},
		Hubs:  []HubRegistration{{Pipe: 1, Address: hub01}},
	}
	g, err := NewGatewayWithDriver(cfg, driver)
	if err != nil {
		t.Fatalf("NewGatewayWithDriver() error = %v", err)
	}
	if err := g.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	got := driver.config
	if got.Channel != 100 || got.DataRate != DataRate250Kbps || got.PALevel != PAMax {
		t.Errorf("configured radio = %+v, want channel 100, 250Kbps, PAMax", got)
	}
	if got.PayloadSize != proto.PacketSize {
		t.Errorf("PayloadSize = %d, want %d", got.PayloadSize, proto.PacketSize)
	}
}

func TestGatewayZeroRadioConfigUsesDefaults(t *testing.T) {
	_, driver, _ := newTestGateway()
	if driver.config != DefaultRadioConfig() {
		t.Errorf("configured radio = %+v, want %+v", driver.config, DefaultRadioConfig())
	}
}

func TestGatewayRejectsWrongPayloadSize(t *testing.T) {
	tests := []struct {
		name string
		size uint8
	}{
		{name: "shorter than a frame", size: 8},
		{name: "just under the wire size", size: proto.WireSize - 1},
		{name: "wider than a packet", size: proto.PacketSize + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver := NewMockDriver()
			radio := DefaultRadioConfig()
			radio.PayloadSize = tt.size
			g, err := NewGatewayWithDriver(GatewayConfig{
				Radio: radio,
				Hubs:  []HubRegistration{{Pipe: 1, Address: hub01}},
			}, driver)
			if err != nil {
				t.Fatalf("NewGatewayWithDriver() error = %v", err)
			}

			if err := g.Begin(); !errors.Is(err, proto.ErrInvalidPayloadSize) {
				t.Fatalf("Begin() error = %v, want %v", err, proto.ErrInvalidPayloadSize)
			}
			if !g.Failed() {
				t.Error("Failed() = false after rejected payload size")
			}
			if got := driver.Count("configure"); got != 0 {
				t.Errorf("radio configured %d times, want 0", got)
			}
		})
	}
}

func TestGatewayNotStarted(t *testing.T) {
	g, err := NewGatewayWithDriver(GatewayConfig{Hubs: []HubRegistration{{Pipe: 1, Address: hub01}}}, NewMockDriver())
	if err != nil {
		t.Fatalf("NewGatewayWithDriver() error = %v", err)
	}
	if g.SendToPeer(1, "LED_ON") {
		t.Error("SendToPeer() = true before Begin()")
	}
}

func TestGatewayStoresAndAcksData(t *testing.T) {
	tests := []struct {
		name  string
		ptype proto.MessageType
		text  string
	}{
		{name: "sensor data", ptype: proto.TypeSensorData, text: "temp=21.5"},
		{name: "status", ptype: proto.TypeStatus, text: "alive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, driver, clock := newTestGateway()
			clock.Advance(time.Second)

			var callbackSlot uint8
			var callbackText string
			g.OnMessage(func(slot uint8, p proto.Packet) {
				callbackSlot = slot
				callbackText = p.Text()
			})

			driver.InjectRx(2, proto.NewPacket(2, 77, tt.ptype, tt.text))
			g.Tick()

			got, ok := g.LastMessage(2)
			if !ok || got != tt.text {
				t.Errorf("LastMessage() = %q,%v want %q,true", got, ok, tt.text)
			}
			if callbackSlot != 2 || callbackText != tt.text {
				t.Errorf("callback got slot %d text %q", callbackSlot, callbackText)
			}

			peer, _ := g.Peer(2)
			if !peer.LastSeen.Equal(clock.Now()) {
				t.Errorf("LastSeen = %v, want %v", peer.LastSeen, clock.Now())
			}

			txLog := driver.GetTxLog()
			if len(txLog) != 1 {
				t.Fatalf("transmitted %d packets, want 1 ack", len(txLog))
			}
			ack := txLog[0]
			if ack.to != hub02 || ack.packet.Type != proto.TypeAck || ack.packet.MsgID != 77 || ack.packet.SenderID != 2 {
				t.Errorf("ack = to %v %+v", ack.to, ack.packet)
			}

			// Acks are never queued for retry
			if got := g.Delivery().QueueLen(2); got != 0 {
				t.Errorf("QueueLen() = %d, want 0", got)
			}
		})
	}
}

func TestGatewayUnknownPipeIsInert(t *testing.T) {
	metrics := telemetry.NewMetrics(prometheus.NewRegistry(), "gateway")
	g, driver, clock := newTestGateway(WithMetrics(metrics))

	before := make([]Peer, proto.MaxPeers)
	copy(before, g.peers[:])
	clock.Advance(time.Second)

	driver.InjectRx(3, proto.NewPacket(3, 1, proto.TypeSensorData, "ghost"))
	driver.InjectRx(0, proto.NewPacket(0, 1, proto.TypeStatus, "ghost"))
	driver.InjectRx(7, proto.NewPacket(7, 1, proto.TypeSensorData, "ghost"))
	g.Tick()

	if got := len(driver.GetTxLog()); got != 0 {
		t.Errorf("transmitted %d packets, want none", got)
	}
	for slot := range g.peers {
		p := g.peers[slot]
		if p.Active != before[slot].Active || !p.LastSeen.Equal(before[slot].LastSeen) || p.hasMessage {
			t.Errorf("slot %d changed: %+v", slot, p)
		}
	}
	if got := testutil.ToFloat64(metrics.PacketsDiscarded.WithLabelValues("invalid_hub")); got != 3 {
		t.Errorf("discarded metric = %v, want 3", got)
	}
}

func TestGatewayDiscardsUnsupportedTypes(t *testing.T) {
	g, driver, clock := newTestGateway()
	clock.Advance(time.Second)

	driver.InjectRx(1, proto.NewPacket(1, 5, proto.TypeCommand, "nope"))
	driver.InjectRx(1, proto.NewPacket(1, 6, proto.MessageType(0x7F), "nope"))
	g.Tick()

	if got := len(driver.GetTxLog()); got != 0 {
		t.Errorf("transmitted %d packets, want none", got)
	}
	if _, ok := g.LastMessage(1); ok {
		t.Error("unsupported packet stored as last message")
	}
	// Still a valid peer, so it counts as heard from
	peer, _ := g.Peer(1)
	if !peer.LastSeen.Equal(clock.Now()) {
		t.Errorf("LastSeen = %v, want %v", peer.LastSeen, clock.Now())
	}
}

func TestGatewayDiscardsMalformedFrames(t *testing.T) {
	g, driver, _ := newTestGateway()

	driver.InjectRaw(1, []byte{1, 2, 3})
	driver.InjectRx(1, proto.NewPacket(1, 9, proto.TypeStatus, "ok"))
	g.Tick()

	if got, _ := g.LastMessage(1); got != "ok" {
		t.Errorf("LastMessage() = %q, want ok (drain must continue after a bad frame)", got)
	}
}

func TestGatewayDrainsEveryBufferedPacket(t *testing.T) {
	g, driver, _ := newTestGateway()

	for i := uint16(1); i <= 3; i++ {
		driver.InjectRx(1, proto.NewPacket(1, i, proto.TypeSensorData, "x"))
	}
	g.Tick()

	if got := len(driver.GetTxLog()); got != 3 {
		t.Errorf("acked %d packets in one tick, want 3", got)
	}
	if _, ok := driver.Available(); ok {
		t.Error("packets left in FIFO after Tick()")
	}
}

// Gateway sends a command to HUB01 on pipe 1, the hub acks it and the
// queue drains while the hub stays reachable.
func TestHub01CommandScenario(t *testing.T) {
	g, driver, clock := newTestGateway()

	if !g.SendToPeer(1, "LED_ON") {
		t.Fatal("SendToPeer() = false, want true")
	}
	sent := driver.GetTxLog()[0]
	if sent.to != hub01 {
		t.Errorf("sent to %v, want %v", sent.to, hub01)
	}
	if sent.packet.MsgID != 1 || sent.packet.Type != proto.TypeCommand || sent.packet.Text() != "LED_ON" {
		t.Errorf("sent packet = %+v", sent.packet)
	}

	clock.Advance(20 * time.Millisecond)
	driver.InjectRx(1, proto.NewPacket(1, 1, proto.TypeAck, ""))
	g.Tick()

	if got := g.Delivery().QueueLen(1); got != 0 {
		t.Errorf("QueueLen() = %d, want 0", got)
	}
	if got := g.PeerLiveness(1); got != proto.Reachable {
		t.Errorf("PeerLiveness() = %v, want reachable", got)
	}

	clock.Advance(proto.PeerTimeout*time.Millisecond - time.Millisecond)
	if got := g.PeerLiveness(1); got != proto.Reachable {
		t.Errorf("PeerLiveness() just before timeout = %v, want reachable", got)
	}
	clock.Advance(time.Millisecond)
	if got := g.PeerLiveness(1); got != proto.Unreachable {
		t.Errorf("PeerLiveness() at timeout = %v, want unreachable", got)
	}
}

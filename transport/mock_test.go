package transport

import (
	"sync"
	"time"

	proto "github.com/ystepanoff/rf24link/protocol"
)

// MockDriver implements the Transceiver interface for testing
type MockDriver struct {
	mutex sync.Mutex

	config    RadioConfig
	configErr error
	failWrite bool

	writing  proto.Address
	reading  map[uint8]proto.Address
	txLog    []sentFrame
	rxData   []rxFrame
	calls    []string
	listened bool
}

type sentFrame struct {
	to     proto.Address
	packet *proto.Packet
}

type rxFrame struct {
	pipe uint8
	data []byte
}

func NewMockDriver() *MockDriver {
	return &MockDriver{reading: make(map[uint8]proto.Address)}
}

func (d *MockDriver) record(call string) { d.calls = append(d.calls, call) }

func (d *MockDriver) Configure(cfg RadioConfig) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.record("configure")
	if d.configErr != nil {
		return d.configErr
	}
	d.config = cfg
	return nil
}

func (d *MockDriver) OpenWritingPipe(addr proto.Address) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.writing = addr
}

func (d *MockDriver) OpenReadingPipe(pipe uint8, addr proto.Address) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.record("open_reading")
	d.reading[pipe] = addr
}

func (d *MockDriver) StartListening() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.record("start_listening")
	d.listened = true
}

func (d *MockDriver) StopListening() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.record("stop_listening")
	d.listened = false
}

func (d *MockDriver) Available() (uint8, bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if len(d.rxData) == 0 {
		return 0, false
	}
	return d.rxData[0].pipe, true
}

func (d *MockDriver) Read() []byte {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if len(d.rxData) == 0 {
		return nil
	}
	data := d.rxData[0].data
	d.rxData = d.rxData[1:]
	return data
}

func (d *MockDriver) Write(data []byte) bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.record("write")
	if d.failWrite {
		return false
	}
	d.txLog = append(d.txLog, sentFrame{to: d.writing, packet: proto.DecodePacket(data)})
	return true
}

func (d *MockDriver) PowerDown() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.record("power_down")
	d.reading = make(map[uint8]proto.Address)
}

func (d *MockDriver) PowerUp() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.record("power_up")
}

// Test helper methods
func (d *MockDriver) GetTxLog() []sentFrame {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return append([]sentFrame(nil), d.txLog...)
}

func (d *MockDriver) ClearTxLog() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.txLog = d.txLog[:0]
}

func (d *MockDriver) InjectRx(pipe uint8, p proto.Packet) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.rxData = append(d.rxData, rxFrame{pipe: pipe, data: proto.EncodePacket(&p)})
}

func (d *MockDriver) InjectRaw(pipe uint8, data []byte) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.rxData = append(d.rxData, rxFrame{pipe: pipe, data: data})
}

func (d *MockDriver) SetFailWrites(fail bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.failWrite = fail
}

func (d *MockDriver) Count(call string) int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	n := 0
	for _, c := range d.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (d *MockDriver) ClearCalls() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.calls = d.calls[:0]
}

func (d *MockDriver) Calls() []string {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return append([]string(nil), d.calls...)
}

// manualClock only moves when told to. Sleep advances it.
type manualClock struct {
	now   time.Time
	slept time.Duration
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time { return c.now }

func (c *manualClock) Sleep(d time.Duration) {
	c.slept += d
	c.now = c.now.Add(d)
}

func (c *manualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

var (
	hub01 = proto.Address{0x11, 0x22, 0x33, 0x44, 0x55}
	hub02 = proto.Address{0x55, 0x44, 0x33, 0x22, 0x11}
)

// newTestGateway builds and starts a gateway with HUB01 on pipe 1 and HUB02
// on pipe 2.
func newTestGateway(opts ...Option) (*Gateway, *MockDriver, *manualClock) {
	driver := NewMockDriver()
	clock := newManualClock()
	cfg := GatewayConfig{
		Hubs: []HubRegistration{
			{Pipe: 1, Address: hub01, Name: "HUB01"},
			{Pipe: 2, Address: hub02, Name: "HUB02"},
		},
	}
	g, err := NewGatewayWithDriver(cfg, driver, append([]Option{WithClock(clock)}, opts...)...)
	if err != nil {
		panic(err)
	}
	if err := g.Begin(); err != nil {
		panic(err)
	}
	driver.ClearCalls()
	return g, driver, clock
}

func newTestHub(opts ...Option) (*Hub, *MockDriver, *manualClock) {
	driver := NewMockDriver()
	clock := newManualClock()
	cfg := HubConfig{ID: 1, GatewayAddress: hub01}
	h, err := NewHubWithDriver(cfg, driver, append([]Option{WithClock(clock)}, opts...)...)
	if err != nil {
		panic(err)
	}
	if err := h.Begin(); err != nil {
		panic(err)
	}
	driver.ClearCalls()
	return h, driver, clock
}

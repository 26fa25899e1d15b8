package stub

import (
	"sync"

	proto "github.com/ystepanoff/rf24link/protocol"
	"github.com/ystepanoff/rf24link/transport"
)

// Driver implements a mock transceiver for host-side testing and simulation.
// Packets written by one Driver reach every other Driver on the same Air
// that has a reading pipe bound to the destination address.
type Driver struct {
	mu sync.Mutex

	air       *Air
	config    transport.RadioConfig
	configErr error
	failWrite bool

	writing   proto.Address
	reading   [proto.MaxPeers]proto.Address
	listening bool
	powered   bool

	rxBuf ringBuffer
	txLog []Sent

	powerCycles int
}

// Sent is one write recorded by a Driver.
type Sent struct {
	To   proto.Address
	Data []byte
}

func New() *Driver { return &Driver{powered: true} }

// FailConfigure makes the next Configure call return err.
func (d *Driver) FailConfigure(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.configErr = err
}

// FailWrites makes every Write report failure until cleared.
func (d *Driver) FailWrites(fail bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failWrite = fail
}

func (d *Driver) Configure(cfg transport.RadioConfig) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.configErr != nil {
		return d.configErr
	}
	d.config = cfg
	return nil
}

func (d *Driver) OpenWritingPipe(addr proto.Address) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writing = addr
}

func (d *Driver) OpenReadingPipe(pipe uint8, addr proto.Address) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if int(pipe) < len(d.reading) {
		d.reading[pipe] = addr
	}
}

func (d *Driver) StartListening() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listening = true
}

func (d *Driver) StopListening() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listening = false
}

func (d *Driver) Available() (uint8, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, ok := d.rxBuf.peek()
	if !ok {
		return 0, false
	}
	return f.pipe, true
}

func (d *Driver) Read() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, ok := d.rxBuf.pop()
	if !ok {
		return nil
	}
	return f.data
}

func (d *Driver) Write(data []byte) bool {
	d.mu.Lock()
	frame := make([]byte, len(data))
	copy(frame, data)
	to := d.writing
	fail := d.failWrite || !d.powered
	if !fail {
		d.txLog = append(d.txLog, Sent{To: to, Data: frame})
	}
	air := d.air
	d.mu.Unlock()

	if fail {
		return false
	}
	if air != nil {
		air.deliver(d, to, frame)
	}
	return true
}

func (d *Driver) PowerDown() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.powered = false
	d.listening = false
	d.reading = [proto.MaxPeers]proto.Address{}
	d.rxBuf = ringBuffer{}
	d.powerCycles++
}

func (d *Driver) PowerUp() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.powered = true
}

// InjectRx queues data as if it had arrived on pipe.
func (d *Driver) InjectRx(pipe uint8, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	frame := make([]byte, len(data))
	copy(frame, data)
	d.rxBuf.push(rxFrame{pipe: pipe, data: frame})
}

// receive accepts a frame from the air if a reading pipe matches to.
func (d *Driver) receive(to proto.Address, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.powered {
		return
	}
	for pipe, addr := range d.reading {
		if !addr.IsZero() && addr == to {
			d.rxBuf.push(rxFrame{pipe: uint8(pipe), data: data})
			return
		}
	}
}

// GetTxLog returns a copy of every successful write.
func (d *Driver) GetTxLog() []Sent {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Sent, len(d.txLog))
	for i, s := range d.txLog {
		cp := make([]byte, len(s.Data))
		copy(cp, s.Data)
		out[i] = Sent{To: s.To, Data: cp}
	}
	return out
}

func (d *Driver) ClearTxLog() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.txLog = d.txLog[:0]
}

func (d *Driver) Config() transport.RadioConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.config
}

func (d *Driver) ReadingPipe(pipe uint8) proto.Address {
	d.mu.Lock()
	defer d.mu.Unlock()
	if int(pipe) >= len(d.reading) {
		return proto.Address{}
	}
	return d.reading[pipe]
}

func (d *Driver) Listening() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.listening
}

func (d *Driver) PowerCycles() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.powerCycles
}

func (d *Driver) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rxBuf.count
}

type rxFrame struct {
	pipe uint8
	data []byte
}

// ringCapacity mirrors a small hardware FIFO; the oldest frame is lost on
// overflow.
const ringCapacity = 32

type ringBuffer struct {
	data       [ringCapacity]rxFrame
	head, tail int // head = next pop, tail = next push
	count      int
}

func (rb *ringBuffer) push(f rxFrame) {
	if rb.count == ringCapacity {
		// Overwrite the oldest when buffer is full to keep memory bounded
		rb.data[rb.head] = rxFrame{}
		rb.head = (rb.head + 1) % ringCapacity
		rb.count--
	}
	rb.data[rb.tail] = f
	rb.tail = (rb.tail + 1) % ringCapacity
	rb.count++
}

func (rb *ringBuffer) peek() (rxFrame, bool) {
	if rb.count == 0 {
		return rxFrame{}, false
	}
	return rb.data[rb.head], true
}

func (rb *ringBuffer) pop() (rxFrame, bool) {
	if rb.count == 0 {
		return rxFrame{}, false
	}
	f := rb.data[rb.head]
	rb.data[rb.head] = rxFrame{}
	rb.head = (rb.head + 1) % ringCapacity
	rb.count--
	return f, true
}

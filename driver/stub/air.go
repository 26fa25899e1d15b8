package stub

import (
	"math/rand"
	"sync"

	proto "github.com/ystepanoff/rf24link/protocol"
)

// Air connects stub Drivers. Delivery is synchronous: by the time Write
// returns, every matching receiver has the frame in its FIFO.
type Air struct {
	mu      sync.Mutex
	drivers []*Driver
	loss    float64
	rng     *rand.Rand
	lost    int
}

// NewAir creates a medium that drops each frame with probability loss.
func NewAir(loss float64, seed int64) *Air {
	return &Air{loss: loss, rng: rand.New(rand.NewSource(seed))}
}

// Attach puts d on the air and returns it.
func (a *Air) Attach(d *Driver) *Driver {
	a.mu.Lock()
	a.drivers = append(a.drivers, d)
	a.mu.Unlock()

	d.mu.Lock()
	d.air = a
	d.mu.Unlock()
	return d
}

// SetLoss changes the drop probability.
func (a *Air) SetLoss(loss float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.loss = loss
}

// Lost returns how many frames the medium has dropped.
func (a *Air) Lost() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lost
}

func (a *Air) deliver(from *Driver, to proto.Address, data []byte) {
	a.mu.Lock()
	if a.loss > 0 && a.rng.Float64() < a.loss {
		a.lost++
		a.mu.Unlock()
		return
	}
	targets := make([]*Driver, 0, len(a.drivers))
	for _, d := range a.drivers {
		if d != from {
			targets = append(targets, d)
		}
	}
	a.mu.Unlock()

	for _, d := range targets {
		frame := make([]byte, len(data))
		copy(frame, data)
		d.receive(to, frame)
	}
}

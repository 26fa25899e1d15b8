package rf24link

import (
	"github.com/ystepanoff/rf24link/driver/stub"
	"github.com/ystepanoff/rf24link/transport"
)

// NewGateway builds a gateway on an in-memory radio. Attach the radio to a
// stub.Air (see NewGatewayOnAir) to let it talk to hubs.
func NewGateway(cfg GatewayConfig, opts ...Option) (*Gateway, error) {
	return transport.NewGatewayWithDriver(cfg, stub.New(), opts...)
}

// NewHub builds a hub on an in-memory radio.
func NewHub(cfg HubConfig, opts ...Option) (*Hub, error) {
	return transport.NewHubWithDriver(cfg, stub.New(), opts...)
}

// NewGatewayOnAir builds a gateway whose radio shares air with other nodes.
func NewGatewayOnAir(air *stub.Air, cfg GatewayConfig, opts ...Option) (*Gateway, error) {
	return transport.NewGatewayWithDriver(cfg, air.Attach(stub.New()), opts...)
}

// NewHubOnAir builds a hub whose radio shares air with other nodes.
func NewHubOnAir(air *stub.Air, cfg HubConfig, opts ...Option) (*Hub, error) {
	return transport.NewHubWithDriver(cfg, air.Attach(stub.New()), opts...)
}

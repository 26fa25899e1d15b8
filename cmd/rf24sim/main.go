// Command rf24sim runs a gateway and its hubs against a simulated, lossy
// radio medium and prints a per-hub summary when the run ends.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/pterm/pterm"
	"go.uber.org/zap"

	"github.com/ystepanoff/rf24link/config"
	"github.com/ystepanoff/rf24link/driver/stub"
	"github.com/ystepanoff/rf24link/internal/telemetry"
	proto "github.com/ystepanoff/rf24link/protocol"
	"github.com/ystepanoff/rf24link/transport"
)

const defaultConfig = `{
	"mode": "gateway",
	"hubs": [
		{"pipe": 1, "address": "HUB01"},
		{"pipe": 2, "address": "HUB02"}
	]
}`

type simClock struct{ now time.Time }

func (c *simClock) Now() time.Time        { return c.now }
func (c *simClock) Sleep(d time.Duration) { c.now = c.now.Add(d) }

type simHub struct {
	name   string
	hub    *transport.Hub
	silent bool
	cmds   int
}

func main() {
	configPath := flag.String("config", "", "gateway config file (default: HUB01 and HUB02 on pipes 1 and 2)")
	duration := flag.Duration("duration", 2*time.Minute, "simulated run time")
	tick := flag.Duration("tick", 10*time.Millisecond, "simulated time between ticks")
	loss := flag.Float64("loss", 0.1, "probability that a frame is lost in the air")
	seed := flag.Int64("seed", 1, "random seed for frame loss")
	silent := flag.String("silent", "", "comma-separated hub names that never power on")
	command := flag.Duration("command", 10*time.Second, "interval between gateway commands to each hub")
	metricsAddr := flag.String("metrics", "", "serve /metrics on this address and wait for Ctrl-C after the run")
	verbose := flag.Bool("v", false, "development logging")
	flag.Parse()

	logger, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	if cfg.Role() != proto.RoleGateway {
		logger.Fatal("config", zap.String("mode", cfg.Mode), zap.String("want", "gateway"))
	}

	clock := &simClock{now: time.Now()}
	air := stub.NewAir(*loss, *seed)
	reg := prometheus.NewRegistry()

	gc := cfg.GatewayConfig(proto.DefaultRegistry)
	gw, err := transport.NewGatewayWithDriver(gc, air.Attach(stub.New()),
		transport.WithLogger(logger),
		transport.WithRegisterer(reg),
		transport.WithClock(clock),
	)
	if err != nil {
		logger.Fatal("gateway", zap.Error(err))
	}

	silentNames := make(map[string]bool)
	for _, name := range strings.Split(*silent, ",") {
		if name = strings.TrimSpace(name); name != "" {
			silentNames[name] = true
		}
	}

	hubs := make(map[uint8]*simHub, len(gc.Hubs))
	for _, r := range gc.Hubs {
		h, err := transport.NewHubWithDriver(transport.HubConfig{
			Radio:          gc.Radio,
			ID:             r.Pipe,
			GatewayAddress: r.Address,
			Delivery:       gc.Delivery,
			StatusInterval: time.Duration(cfg.StatusInterval) * time.Millisecond,
		}, air.Attach(stub.New()),
			transport.WithLogger(logger.With(zap.String("hub", r.Name))),
			transport.WithClock(clock),
		)
		if err != nil {
			logger.Fatal("hub", zap.String("name", r.Name), zap.Error(err))
		}
		sh := &simHub{name: r.Name, hub: h, silent: silentNames[r.Name]}
		h.OnCommand(func(proto.Packet) { sh.cmds++ })
		hubs[r.Pipe] = sh
	}

	received := make(map[uint8]int)
	gw.OnMessage(func(slot uint8, p proto.Packet) {
		received[slot]++
		logger.Debug("hub message", zap.Uint8("slot", slot), zap.Stringer("type", p.Type), zap.String("text", p.Text()))
	})

	if err := gw.Begin(); err != nil {
		logger.Fatal("gateway begin", zap.Error(err))
	}
	for _, sh := range hubs {
		if sh.silent {
			continue
		}
		if err := sh.hub.Begin(); err != nil {
			logger.Fatal("hub begin", zap.String("name", sh.name), zap.Error(err))
		}
	}

	pterm.Info.Printfln("simulating %v with %d hubs, loss %.0f%%", *duration, len(hubs), *loss*100)

	end := clock.Now().Add(*duration)
	nextCommand := clock.Now().Add(*command)
	for clock.Now().Before(end) {
		clock.Sleep(*tick)
		if !clock.Now().Before(nextCommand) {
			for slot := range hubs {
				gw.SendToPeer(slot, "PING")
			}
			nextCommand = nextCommand.Add(*command)
		}
		for _, sh := range hubs {
			if !sh.silent {
				sh.hub.Tick()
			}
		}
		gw.Tick()
	}

	if err := printSummary(gw, hubs, received, air); err != nil {
		logger.Error("summary", zap.Error(err))
	}

	if *metricsAddr != "" {
		serveMetrics(*metricsAddr, reg, logger)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Parse([]byte(defaultConfig), proto.DefaultRegistry)
	}
	return config.Load(path, proto.DefaultRegistry)
}

func printSummary(gw *transport.Gateway, hubs map[uint8]*simHub, received map[uint8]int, air *stub.Air) error {
	data := pterm.TableData{
		{"Slot", "Hub", "Liveness", "Received", "Last message", "Gateway pending", "Hub sent/acked", "Commands"},
	}
	for slot := uint8(0); slot < proto.MaxPeers; slot++ {
		sh, ok := hubs[slot]
		if !ok {
			continue
		}
		last, _ := gw.LastMessage(slot)
		data = append(data, []string{
			fmt.Sprint(slot),
			sh.name,
			gw.PeerLiveness(slot).String(),
			fmt.Sprint(received[slot]),
			last,
			fmt.Sprint(gw.Delivery().QueueLen(slot)),
			fmt.Sprintf("%d/%d", sh.hub.LastSentID(), sh.hub.LastAckedID()),
			fmt.Sprint(sh.cmds),
		})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}
	pterm.Info.Printfln("frames lost: %d, radio reconnects: %d", air.Lost(), gw.Monitor().Reconnects())
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.Handler(reg))
	srv := &http.Server{Addr: addr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server", zap.Error(err))
			stop()
		}
	}()
	pterm.Info.Printfln("metrics on http://%s/metrics, Ctrl-C to exit", addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

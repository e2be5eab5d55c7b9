// Command relay pairs two simulations so agents leaving one arena enter
// the other.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/pthm-cable/ecotile/config"
	"github.com/pthm-cable/ecotile/peer"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	listen := flag.String("listen", "", "Listen address (empty = peer.address from config)")
	once := flag.Bool("once", false, "Exit after the first pair disconnects")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	addr := *listen
	if addr == "" {
		addr = cfg.Peer.Address
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	relay := peer.NewRelay()
	relay.MaxCount = cfg.Peer.MaxEntering

	for {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			slog.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		slog.Info("relay waiting for two simulations", "addr", ln.Addr().String())

		err = relay.Serve(ctx, ln)
		ln.Close()
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			slog.Error("relay session failed", "error", err)
		default:
			slog.Info("relay session ended")
		}
		if *once {
			if err != nil {
				os.Exit(1)
			}
			return
		}
	}
}

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/Tyrowin/wsrelay/internal/console"
	"github.com/Tyrowin/wsrelay/internal/metrics"
	"github.com/Tyrowin/wsrelay/internal/protocol"
	"github.com/Tyrowin/wsrelay/internal/server"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	in := bufio.NewReader(os.Stdin)

	host, err := console.Prompt(in, os.Stdout, "Enter host (default localhost): ")
	if err != nil {
		return fmt.Errorf("read host: %w", err)
	}
	if host == "" {
		host = "localhost"
	}
	port, err := console.PromptPort(in, os.Stdout, "Enter port: ")
	if err != nil {
		return fmt.Errorf("read port: %w", err)
	}

	config := server.NewConfig()
	config.Addr = server.JoinAddr(host, port)

	reg := prometheus.NewRegistry()
	hub := server.NewHub(config, func(peerID string, env protocol.Envelope) {
		log.Printf("Received from peer %s: %s", peerID, env.Message)
	}, server.WithHubMetrics(metrics.NewHub(reg)))
	go hub.Run()

	httpServer := server.CreateServer(config.Addr, server.SetupRoutes(hub, reg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.StartServer(httpServer)
	})

	g.Go(func() error {
		fmt.Println("Type a message to broadcast to all peers. Type 'quit' to stop.")
		err := console.InputLoop(gctx, in, os.Stdout, "> ", func(line string) {
			n, err := hub.Broadcast(line)
			if err != nil {
				log.Printf("Broadcast failed: %v", err)
				return
			}
			log.Printf("Broadcast to %d peers", n)
		})
		if err == nil || errors.Is(err, console.ErrQuit) {
			// End of input stops the hub like quit does.
			return console.ErrQuit
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down hub...")
		srvErr := server.ShutdownServer(httpServer, shutdownTimeout)
		return errors.Join(srvErr, hub.Shutdown(shutdownTimeout))
	})

	if err := g.Wait(); err != nil && !errors.Is(err, console.ErrQuit) && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Println("Hub stopped")
	return nil
}

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

	"golang.org/x/sync/errgroup"

	"github.com/Tyrowin/wsrelay/internal/client"
	"github.com/Tyrowin/wsrelay/internal/console"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	in := bufio.NewReader(os.Stdin)

	url, err := console.Prompt(in, os.Stdout, "Enter server URL (e.g. ws://localhost:3000): ")
	if err != nil {
		return fmt.Errorf("read url: %w", err)
	}
	if url == "" {
		return errors.New("server URL is required")
	}

	peer := client.NewPeer(client.NewConfig(url))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return peer.Run(gctx)
	})

	g.Go(func() error {
		fmt.Println("Type a message to send. Type 'quit' to stop.")
		err := console.InputLoop(gctx, in, os.Stdout, "> ", func(line string) {
			err := peer.Send(line)
			switch {
			case err == nil:
			case errors.Is(err, client.ErrNotConnected):
				log.Println("Not connected to the server yet, try again later")
			case errors.Is(err, client.ErrShutdown):
			default:
				log.Printf("Send failed: %v", err)
			}
		})
		if err == nil || errors.Is(err, console.ErrQuit) {
			return console.ErrQuit
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		peer.Shutdown()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, console.ErrQuit) && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Package main starts the offline gateway daemon.
//
// This process fronts one application origin: it answers GETs through the
// caching worker, parks failed mutations in the outbox for replay, and
// exposes the command and health endpoints. Configuration comes from
// GATEWAY_* and OFFLINE_* environment variables.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/intakeworks/offlinekit/gateway"
)

func main() {
	log.SetPrefix("[OFFLINED] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}

func run(ctx context.Context) error {
	cfg, err := gateway.ConfigFromEnv()
	if err != nil {
		return err
	}
	srv, err := gateway.NewServer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init gateway: %w", err)
	}
	defer func() {
		if err := srv.Close(); err != nil {
			log.Printf("close gateway: %v", err)
		}
	}()

	if err := srv.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve gateway: %w", err)
	}
	return nil
}

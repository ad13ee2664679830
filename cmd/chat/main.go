// Command chat is an interactive terminal client for the agent stream: it
// mounts one session, renders assistant tokens as they arrive, and accepts
// user messages on stdin.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hubenschmidt/langgraph-react/internal/config"
	"github.com/hubenschmidt/langgraph-react/internal/logging"
	"github.com/hubenschmidt/langgraph-react/internal/monitoring"
	"github.com/hubenschmidt/langgraph-react/internal/session"
)

func main() {
	configPath := flag.String("config", "", "Optional YAML config file")
	endpoint := flag.String("endpoint", "", "WebSocket endpoint (overrides config)")
	metricsAddr := flag.String("metrics", "", "Local metrics listen address (overrides config)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *endpoint != "" {
		cfg.Chat.Endpoint = *endpoint
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}

	log, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	registry := prometheus.NewRegistry()

	if cfg.Metrics.Addr != "" {
		srv := monitoring.NewServer(cfg.Metrics.Addr, registry, log)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Warn("metrics listener failed", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	sess := session.New(cfg.Chat, log, registry)
	defer sess.Stop()

	fmt.Printf("Connecting to %s (session %s)\n", cfg.Chat.Endpoint, sess.ID())
	if err := sess.Start(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}

	updates, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	r := newRenderer(os.Stdout)
	r.render(sess.Snapshot())
	go func() {
		for snapshot := range updates {
			r.render(snapshot)
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupt
		fmt.Println("\nbye")
		sess.Stop()
		os.Exit(0)
	}()

	fmt.Println("Type a message and press Enter. Commands: /reset, /quit")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())

		switch input {
		case "":
			continue
		case "/quit":
			return
		case "/reset":
			sess.Reset()
			continue
		}

		if !sess.Connected() {
			fmt.Println("(disconnected, message not sent)")
			continue
		}
		if !sess.Send(input) {
			fmt.Println("(message rejected)")
		}
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

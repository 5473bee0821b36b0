// ABOUTME: Entry point for the resample server
// ABOUTME: Parses CLI flags and serves streaming sample-rate conversion over WebSocket
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Resonate-Protocol/resample-go/internal/server"
	"github.com/Resonate-Protocol/resample-go/internal/version"
)

var (
	port     = flag.Int("port", 8927, "WebSocket server port")
	name     = flag.String("name", "", "Server friendly name (default: hostname-resample-server)")
	logFile  = flag.String("log-file", "resample-server.log", "Log file path")
	debug    = flag.Bool("debug", false, "Enable debug logging")
	noMDNS   = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	noTUI    = flag.Bool("no-tui", false, "Disable the status display and log to the console")
	capacity = flag.Int("capacity", 0, "Per-channel resampler capacity in samples (default: 8192)")
	showVer  = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("%s %s\n", version.Product, version.Version)
		return
	}

	// Set up logging
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	useTUI := !*noTUI
	if useTUI {
		// The status display owns the terminal
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	// Determine server name
	serverName := *name
	if serverName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		serverName = fmt.Sprintf("%s-resample-server", hostname)
	}

	log.Printf("Starting %s %s: %s on port %d", version.Product, version.Version, serverName, *port)
	if *debug {
		log.Printf("Debug logging enabled")
	}
	log.Printf("Logging to: %s", *logFile)

	srv := server.New(server.Config{
		Port:       *port,
		Name:       serverName,
		EnableMDNS: !*noMDNS,
		Debug:      *debug,
		UseTUI:     useTUI,
		Capacity:   *capacity,
	})

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("Received %v signal, shutting down gracefully...", sig)
		srv.Stop()
	}()

	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Printf("Server stopped")
}

// Package main is the entry point for the hark headless playback session.
//
// hark plays audio files, folders (as multi-part audiobooks) and stream URLs
// passed on the command line, restoring and persisting playback state between
// sessions.
//
// Build:
//
//	go build -o build/hark ./cmd/hark
//
// Run:
//
//	./build/hark ~/audiobooks/moby-dick ~/music/song.mp3
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/narratix/hark/internal/app"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(app.GetVersionInfo().FullString())
		return
	}

	config, err := app.LoadConfig("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	application, err := app.New(config)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Ensure a graceful shutdown; Shutdown persists the session snapshot.
	defer func() {
		fmt.Println("\nShutting down...")
		application.Shutdown()
		fmt.Println("Shutdown complete")
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.RestoreSession(ctx); err != nil {
		log.Printf("Failed to restore previous session: %v", err)
	}

	for _, arg := range flag.Args() {
		if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
			if _, err := application.AddStream(arg, ""); err != nil {
				log.Printf("Skipping %q: %v", arg, err)
			}
			continue
		}
		if _, err := application.AddPath(ctx, arg); err != nil {
			log.Printf("Skipping %q: %v", arg, err)
		}
	}

	if application.Playlist().Count() == 0 {
		fmt.Println("Nothing to play; pass files, folders or stream URLs")
		return
	}

	if err := application.Play(ctx); err != nil {
		log.Printf("Playback failed to start: %v", err)
		return
	}

	// Block until interrupted.
	<-ctx.Done()
}

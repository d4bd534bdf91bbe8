package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/piscoTech/GymTracker-sub000/internal/mcp"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// gymtracker-mcp serves the MCP tools over stdio, reading from a remote
// GymTracker server through its REST API.
func main() {
	serverURL := flag.String("server", "", "GymTracker server URL (e.g. https://gymtracker.tail1234.ts.net)")
	flag.Parse()

	if *serverURL == "" {
		fmt.Fprintf(os.Stderr, "Usage: gymtracker-mcp -server <URL>\n")
		os.Exit(1)
	}

	// stdout carries the protocol
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	s := mcp.New(mcp.NewHTTPClient(*serverURL), Version, log)
	if err := mcpserver.ServeStdio(s); err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}

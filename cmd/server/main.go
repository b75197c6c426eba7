package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"route_engine/pkg/api"
	"route_engine/pkg/ch"
	"route_engine/pkg/graph"
	"route_engine/pkg/routing"
)

func main() {
	graphPath := flag.String("graph", "graph.bin", "Path to preprocessed graph binary")
	hierPath := flag.String("hierarchy", "hierarchy.bin", "Path to preprocessed hierarchy binary")
	port := flag.Int("port", 8080, "HTTP port")
	corsOrigin := flag.String("cors-origin", "", "CORS allowed origin (empty = same-origin)")
	flag.Parse()

	start := time.Now()

	log.Printf("Loading graph from %s...", *graphPath)
	s, err := graph.Load(*graphPath)
	if err != nil {
		log.Fatalf("Failed to load graph: %v", err)
	}
	log.Printf("Loaded graph: %d nodes, %d edges", s.NodeCount(), s.EdgeCount())

	log.Printf("Loading hierarchy from %s...", *hierPath)
	h, err := ch.Load(*hierPath, s)
	if err != nil {
		log.Fatalf("Failed to load hierarchy: %v", err)
	}
	log.Printf("Loaded hierarchy: %d shortcuts, core size %d", len(h.Shortcuts), h.CoreSize)

	log.Println("Building R-tree spatial index...")
	engine := routing.NewEngine(s, h)

	loadTime := time.Since(start)
	log.Printf("Ready in %s", loadTime.Round(time.Millisecond))

	addr := fmt.Sprintf(":%d", *port)
	cfg := api.DefaultConfig(addr)
	cfg.CORSOrigin = *corsOrigin

	stats := api.StatsResponse{
		NumNodes:     s.NodeCount(),
		NumEdges:     s.EdgeCount(),
		NumShortcuts: len(h.Shortcuts),
		CoreSize:     h.CoreSize,
	}

	handlers := api.NewHandlers(engine, stats)
	srv := api.NewServer(cfg, handlers)

	if err := api.ListenAndServe(srv); err != nil {
		log.Printf("Server stopped: %v", err)
		os.Exit(1)
	}
}

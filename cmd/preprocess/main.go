package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"route_engine/pkg/ch"
	"route_engine/pkg/graph"
	osmparser "route_engine/pkg/osm"
)

func main() {
	input := flag.String("input", "", "Path to .osm.pbf file")
	graphOut := flag.String("graph", "graph.bin", "Output graph file path")
	hierOut := flag.String("hierarchy", "hierarchy.bin", "Output hierarchy file path")
	bbox := flag.String("bbox", "", "Bounding box filter: minLat,minLng,maxLat,maxLng (e.g. 1.15,103.6,1.48,104.1)")
	singapore := flag.Bool("singapore", false, "Shortcut for --bbox 1.15,103.6,1.48,104.1 (Singapore bounding box)")
	kl := flag.Bool("kl", false, "Shortcut for --bbox 2.75,101.2,3.5,102.0 (Selangor + Kuala Lumpur bounding box)")
	orderer := flag.String("orderer", "edgediff", "Node ordering heuristic: degree | edgediff")
	witnessHops := flag.Int("witness-hops", 0, "Witness search hop limit (0 = default)")
	witnessSettled := flag.Int("witness-settled", 0, "Witness search settled-node limit (0 = default)")
	maxShortcuts := flag.Int("max-shortcuts", 0, "Per-node shortcut limit before the node is left in the core (0 = default)")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: preprocess --input <file.osm.pbf> [--graph graph.bin] [--hierarchy hierarchy.bin] [--orderer degree|edgediff] [--singapore | --kl | --bbox minLat,minLng,maxLat,maxLng]")
		os.Exit(1)
	}

	// Parse bbox option.
	var opts osmparser.ParseOptions
	if *kl {
		opts.BBox = osmparser.BBox{MinLat: 2.75, MaxLat: 3.5, MinLng: 101.2, MaxLng: 102.0}
		log.Println("Using Selangor + KL bounding box filter: lat [2.75, 3.50], lng [101.20, 102.00]")
	} else if *singapore {
		opts.BBox = osmparser.BBox{MinLat: 1.15, MaxLat: 1.48, MinLng: 103.6, MaxLng: 104.1}
		log.Println("Using Singapore bounding box filter: lat [1.15, 1.48], lng [103.6, 104.1]")
	} else if *bbox != "" {
		var minLat, minLng, maxLat, maxLng float64
		_, err := fmt.Sscanf(*bbox, "%f,%f,%f,%f", &minLat, &minLng, &maxLat, &maxLng)
		if err != nil {
			log.Fatalf("Invalid bbox format (expected minLat,minLng,maxLat,maxLng): %v", err)
		}
		opts.BBox = osmparser.BBox{MinLat: minLat, MaxLat: maxLat, MinLng: minLng, MaxLng: maxLng}
		log.Printf("Using bounding box filter: lat [%.4f, %.4f], lng [%.4f, %.4f]", minLat, maxLat, minLng, maxLng)
	}

	var ord ch.Orderer
	switch *orderer {
	case "degree":
		ord = ch.DegreeOrderer{}
	case "edgediff":
		ord = ch.EdgeDifferenceOrderer{}
	default:
		log.Fatalf("Unknown orderer %q (want degree or edgediff)", *orderer)
	}

	cfg := ch.DefaultConfig()
	if *witnessHops > 0 {
		cfg.WitnessHops = *witnessHops
	}
	if *witnessSettled > 0 {
		cfg.WitnessMaxSettled = *witnessSettled
	}
	if *maxShortcuts > 0 {
		cfg.MaxShortcutsPerNode = *maxShortcuts
	}

	start := time.Now()

	// Step 1: Parse OSM data.
	log.Println("Opening OSM file...")
	f, err := os.Open(*input)
	if err != nil {
		log.Fatalf("Failed to open input file: %v", err)
	}
	defer f.Close()

	log.Println("Parsing OSM data...")
	parseResult, err := osmparser.Parse(context.Background(), f, opts)
	if err != nil {
		log.Fatalf("Failed to parse OSM data: %v", err)
	}

	// Step 2: Build graph store.
	log.Println("Building graph store...")
	s, err := parseResult.BuildStore()
	if err != nil {
		log.Fatalf("Failed to build graph store: %v", err)
	}
	log.Printf("Graph: %d nodes, %d edges, %d restrictions",
		s.NodeCount(), s.EdgeCount(), len(s.TurnRestrictions()))

	// Step 3: Extract largest connected component.
	log.Println("Extracting largest connected component...")
	componentNodes := graph.LargestComponent(s)
	log.Printf("Largest component: %d nodes (%.1f%%)",
		len(componentNodes), float64(len(componentNodes))/float64(s.NodeCount())*100)
	s, err = graph.FilterToComponent(s, componentNodes)
	if err != nil {
		log.Fatalf("Failed to filter graph: %v", err)
	}
	log.Printf("Filtered graph: %d nodes, %d edges", s.NodeCount(), s.EdgeCount())

	// Step 4: Build the hierarchy.
	log.Printf("Running contraction (orderer=%s)...", *orderer)
	h, err := ch.Preprocess(s, ord, cfg)
	if err != nil {
		log.Fatalf("Contraction failed: %v", err)
	}
	log.Printf("Contraction complete: %d shortcuts, core size %d", len(h.Shortcuts), h.CoreSize)

	// Step 5: Serialize graph and hierarchy.
	log.Printf("Writing graph to %s...", *graphOut)
	if err := s.Save(*graphOut); err != nil {
		log.Fatalf("Failed to write graph: %v", err)
	}
	log.Printf("Writing hierarchy to %s...", *hierOut)
	if err := h.Save(*hierOut); err != nil {
		log.Fatalf("Failed to write hierarchy: %v", err)
	}

	gInfo, _ := os.Stat(*graphOut)
	hInfo, _ := os.Stat(*hierOut)
	elapsed := time.Since(start)
	log.Printf("Done in %s. Graph: %.1f MB, hierarchy: %.1f MB",
		elapsed.Round(time.Second),
		float64(gInfo.Size())/(1024*1024),
		float64(hInfo.Size())/(1024*1024))
}

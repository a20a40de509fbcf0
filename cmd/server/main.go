// Package main - Entry point for the trade-in offer session server
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"tradein-engine/api"
	"tradein-engine/core/catalog"
	"tradein-engine/core/catalog/hclfile"
	"tradein-engine/core/session"
	"tradein-engine/store"
)

const version = "1.0.0"

func main() {
	addr := flag.String("addr", ":8080", "Server address")
	catalogPath := flag.String("catalog", "", "Path to catalog HCL file")
	window := flag.Duration("window", 30*time.Minute, "Session TTL window")
	flag.Parse()

	var cat *catalog.Memory
	if *catalogPath != "" {
		loaded, err := hclfile.Load(*catalogPath)
		if err != nil {
			log.Fatal(err)
		}
		cat = loaded
	} else {
		cat = catalog.NewMemory()
	}

	st := store.NewMemory()
	manager := session.NewManager(st, cat, *window)
	apiServer := api.NewServer(version, manager)

	fmt.Printf("tradein-engine server v%s\n", version)
	fmt.Printf("   API: http://localhost%s\n", *addr)
	fmt.Println()

	if err := apiServer.ListenAndServe(*addr); err != nil {
		log.Fatal(err)
	}
}

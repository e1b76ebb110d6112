// Command testdiscovery runs a standalone fake CMS discovery service for
// manual testing of the publication resolver.
// Usage: go run ./cmd/testdiscovery -port 8081 -map "/en=5,/fr=6"
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
)

func main() {
	port := flag.Int("port", 8081, "Port to listen on")
	mapping := flag.String("map", "/en=5,/fr=6", "Comma-separated stub=id pairs")
	flag.Parse()

	stubs, err := parseMapping(*mapping)
	if err != nil {
		log.Fatalf("Invalid -map value: %v", err)
	}

	http.HandleFunc("/discover", func(w http.ResponseWriter, r *http.Request) {
		stub := r.URL.Query().Get("url")
		id, ok := stubs[stub]
		if !ok {
			log.Printf("discover %q -> not found", stub)
			http.NotFound(w, r)
			return
		}
		log.Printf("discover %q -> %d", stub, id)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"publicationId": id})
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("Test discovery service listening on %s", addr)
	log.Printf("Stub mapping: %v", stubs)
	log.Fatal(http.ListenAndServe(addr, nil))
}

// parseMapping parses "stub=id,stub=id" into a lookup table.
func parseMapping(s string) (map[string]int, error) {
	stubs := make(map[string]int)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		stub, idStr, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("missing '=' in %q", pair)
		}
		id, err := strconv.Atoi(idStr)
		if err != nil {
			return nil, fmt.Errorf("invalid id in %q: %w", pair, err)
		}
		stubs[stub] = id
	}
	return stubs, nil
}

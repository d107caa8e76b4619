// Flakysvc is a simulated unreliable upstream used for resilience testing.
// It serves /data and /health endpoints and can be switched between
// healthy and failing modes at runtime.
//
// Usage:
//
//	go run ./scripts/flakysvc -port 8081 -fail-rate 0.2 -latency 50ms
//
// POST /mode?set=fail makes every request fail, /mode?set=ok restores
// the configured failure rate. The server logs all requests and returns
// JSON responses with unique UUIDs.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	mrand "math/rand"
	"net/http"
	"sync/atomic"
	"time"
)

// newUUID generates a random v4 UUID per RFC 4122.
func newUUID() string {
	b := make([]byte, 16)
	_, err := rand.Read(b)
	if err != nil {
		return ""
	}
	// set version (4) and variant bits per RFC 4122
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	// format as hex groups
	return fmt.Sprintf("%s-%s-%s-%s-%s",
		hex.EncodeToString(b[0:4]),
		hex.EncodeToString(b[4:6]),
		hex.EncodeToString(b[6:8]),
		hex.EncodeToString(b[8:10]),
		hex.EncodeToString(b[10:16]),
	)
}

func main() {
	port := flag.Int("port", 8081, "port to listen on")
	failRate := flag.Float64("fail-rate", 0, "fraction of requests answered with 500 (0..1)")
	latency := flag.Duration("latency", 0, "artificial delay added to every /data response")
	flag.Parse()

	// failRateBits holds the active rate; /mode swaps it at runtime.
	var failRateBits atomic.Uint64
	failRateBits.Store(math.Float64bits(*failRate))

	mux := http.NewServeMux()
	mux.HandleFunc("/data", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("request: method=%s path=%s from=%s", r.Method, r.URL.Path, r.RemoteAddr)

		if *latency > 0 {
			time.Sleep(*latency)
		}

		rate := math.Float64frombits(failRateBits.Load())
		if rate > 0 && mrand.Float64() < rate {
			http.Error(w, "simulated upstream failure", http.StatusInternalServerError)
			return
		}

		resp := map[string]any{
			"request_id": newUUID(),
			"data": []map[string]any{
				{"id": 1, "name": "Antman"},
				{"id": 2, "name": "Batman"},
			},
			"status": "ok",
		}
		b, _ := json.Marshal(resp)
		w.Header().Set("Content-Type", "application/json")
		w.Write(b)
	})

	mux.HandleFunc("/mode", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		switch r.URL.Query().Get("set") {
		case "fail":
			failRateBits.Store(math.Float64bits(1))
		case "ok":
			failRateBits.Store(math.Float64bits(*failRate))
		default:
			http.Error(w, "set must be ok or fail", http.StatusBadRequest)
			return
		}

		log.Printf("mode changed: set=%s", r.URL.Query().Get("set"))
		w.Write([]byte("ok"))
	})

	// simple health endpoint for manual checks
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("starting flaky upstream on %s (fail-rate=%.2f latency=%s)", addr, *failRate, *latency)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

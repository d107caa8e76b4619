// Breakerdemo drives a running bulwark daemon through the full
// degradation cycle against a flakysvc upstream: healthy calls, upstream
// failure with fallback payloads, open-breaker fast-fail, and recovery.
//
// Usage:
//
//	go run ./scripts/breakerdemo -daemon http://localhost:8080 -upstream http://localhost:8081 -service heroes-api
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

func main() {
	var (
		daemonURL   = flag.String("daemon", "http://localhost:8080", "Bulwark daemon URL")
		upstreamURL = flag.String("upstream", "http://localhost:8081", "Flaky upstream URL (its /mode endpoint is used)")
		service     = flag.String("service", "heroes-api", "Registered service name to invoke")
		requests    = flag.Int("requests", 10, "Requests per phase")
		recovery    = flag.Duration("recovery", 10*time.Second, "Recovery timeout configured for the service")
	)
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}

	fmt.Println(colorCyan + "╔════════════════════════════════════════════════════════════════╗" + colorReset)
	fmt.Println(colorCyan + "║         CIRCUIT BREAKER & DEGRADATION DEMO                    ║" + colorReset)
	fmt.Println(colorCyan + "╚════════════════════════════════════════════════════════════════╝" + colorReset)
	fmt.Println()

	// PHASE 1: Verify normal operation
	fmt.Println(colorBlue + "━━━ PHASE 1: Healthy Upstream ━━━" + colorReset)
	fmt.Println("Invoking the service while the upstream is up...")

	liveCount := 0
	for i := 0; i < *requests; i++ {
		payload, err := invoke(client, *daemonURL, *service)
		if err != nil {
			fmt.Printf(colorRed+"  Request %d: ERROR - %v\n"+colorReset, i+1, err)
			continue
		}
		if payloadStatus(payload) != "degraded" {
			liveCount++
		}
	}

	fmt.Printf("\n  Results: %d/%d live responses\n", liveCount, *requests)
	if liveCount == 0 {
		fmt.Println(colorRed + "  ✗ No live responses! Are the daemon and upstream running?" + colorReset)
		os.Exit(1)
	}
	fmt.Println(colorGreen + "  ✓ Normal operation verified" + colorReset)
	fmt.Println()

	// PHASE 2: Fail the upstream, expect degraded payloads
	fmt.Println(colorBlue + "━━━ PHASE 2: Upstream Failure & Degradation ━━━" + colorReset)
	fmt.Println("Switching the upstream into failing mode...")

	if err := setMode(client, *upstreamURL, "fail"); err != nil {
		fmt.Printf(colorRed+"  ✗ Could not switch upstream mode: %v\n"+colorReset, err)
		os.Exit(1)
	}

	degradedCount := 0
	for i := 0; i < *requests; i++ {
		payload, err := invoke(client, *daemonURL, *service)
		if err != nil {
			fmt.Printf(colorRed+"  Request %d: ERROR - %v\n"+colorReset, i+1, err)
			continue
		}
		if payloadStatus(payload) == "degraded" {
			degradedCount++
		}
	}

	fmt.Printf("\n  Results: %d/%d degraded responses\n", degradedCount, *requests)
	if degradedCount == *requests {
		fmt.Println(colorGreen + "  ✓ Every failed call was absorbed by the fallback" + colorReset)
	} else {
		fmt.Println(colorYellow + "  ⚠ Some calls served cached data (the response cache is still warm)" + colorReset)
	}
	fmt.Println()

	// PHASE 3: Breaker state
	fmt.Println(colorBlue + "━━━ PHASE 3: Breaker Status ━━━" + colorReset)
	fmt.Println("Checking /status endpoint...")

	status, err := getStatus(client, *daemonURL, *service)
	if err != nil {
		fmt.Printf(colorYellow+"  Could not fetch status: %v\n"+colorReset, err)
	} else {
		state := breakerStatus(status)
		if state == "UNAVAILABLE" {
			fmt.Printf("  Breaker: %sOPEN%s (fast-failing, fallback still served)\n", colorRed, colorReset)
		} else {
			fmt.Printf("  Breaker: %s%s%s\n", colorYellow, state, colorReset)
		}
	}
	fmt.Println()

	// PHASE 4: Recovery
	fmt.Println(colorBlue + "━━━ PHASE 4: Recovery ━━━" + colorReset)
	fmt.Println("Restoring the upstream and waiting out the recovery window...")

	if err := setMode(client, *upstreamURL, "ok"); err != nil {
		fmt.Printf(colorRed+"  ✗ Could not restore upstream: %v\n"+colorReset, err)
		os.Exit(1)
	}

	time.Sleep(*recovery + time.Second)

	payload, err := invoke(client, *daemonURL, *service)
	if err != nil {
		fmt.Printf(colorRed+"  Trial call failed: %v\n"+colorReset, err)
	} else if payloadStatus(payload) != "degraded" {
		fmt.Println(colorGreen + "  ✓ Trial call reached the upstream, breaker closed" + colorReset)
	} else {
		fmt.Println(colorYellow + "  ⚠ Still degraded, recovery window may not have elapsed" + colorReset)
	}

	if status, err := getStatus(client, *daemonURL, *service); err == nil {
		fmt.Printf("  Breaker: %s%s%s\n", colorGreen, breakerStatus(status), colorReset)
	}
	fmt.Println()

	// Summary
	fmt.Println(colorCyan + "╔════════════════════════════════════════════════════════════════╗" + colorReset)
	fmt.Println(colorCyan + "║                    DEMO COMPLETE                               ║" + colorReset)
	fmt.Println(colorCyan + "╚════════════════════════════════════════════════════════════════╝" + colorReset)
	fmt.Println()
	fmt.Println("Key behaviors demonstrated:")
	fmt.Println("  1. Live responses while the upstream is healthy")
	fmt.Println("  2. Identical fallback payloads during upstream failure")
	fmt.Println("  3. Breaker opening after the failure threshold")
	fmt.Println("  4. Trial call closing the breaker after the recovery window")
	fmt.Println()
	fmt.Println("Check daemon logs for detailed retry and breaker activity.")
}

func invoke(client *http.Client, daemonURL, service string) (map[string]any, error) {
	resp, err := client.Get(fmt.Sprintf("%s/invoke?service=%s", daemonURL, service))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	return payload, nil
}

func setMode(client *http.Client, upstreamURL, mode string) error {
	resp, err := client.Post(fmt.Sprintf("%s/mode?set=%s", upstreamURL, mode), "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mode endpoint returned status %d", resp.StatusCode)
	}

	return nil
}

func getStatus(client *http.Client, daemonURL, service string) (map[string]any, error) {
	resp, err := client.Get(fmt.Sprintf("%s/status?service=%s", daemonURL, service))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var status map[string]any
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, err
	}

	return status, nil
}

func payloadStatus(payload map[string]any) string {
	status, _ := payload["status"].(string)
	return status
}

func breakerStatus(status map[string]any) string {
	state, _ := status["breaker"].(string)
	return state
}

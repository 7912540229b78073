package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// mockipn replays a processor callback against a running relay.
func main() {
	base := flag.String("url", "http://localhost:5000", "Relay base URL")
	channel := flag.String("channel", "ipn", "Callback channel (ipn, success, fail, cancel)")
	tranID := flag.String("tran-id", "", "Merchant transaction id")
	valID := flag.String("val-id", "", "Processor validation id")
	status := flag.String("status", "VALID", "Status field to send")
	amount := flag.String("amount", "", "Amount field to send")
	errMsg := flag.String("error", "", "Error field to send (fail channel)")
	dryRun := flag.Bool("dry-run", false, "Only print the form body, don't send")

	flag.Parse()

	if *tranID == "" {
		fmt.Fprintf(os.Stderr, "Error: -tran-id is required\n")
		os.Exit(1)
	}

	path, ok := map[string]string{
		"ipn":     "/api/payment-notification",
		"success": "/payment-success",
		"fail":    "/payment-failed",
		"cancel":  "/payment-cancel",
	}[*channel]
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown channel %q\n", *channel)
		os.Exit(1)
	}

	form := url.Values{}
	form.Set("tran_id", *tranID)
	if *channel == "ipn" || *channel == "success" {
		if *valID == "" {
			*valID = "val_" + randomHex(8)
		}
		form.Set("val_id", *valID)
	}
	if *status != "" {
		form.Set("status", *status)
	}
	if *amount != "" {
		form.Set("amount", *amount)
	}
	if *errMsg != "" {
		form.Set("error", *errMsg)
	}

	body := form.Encode()
	fmt.Printf("Body: %s\n", body)

	if *dryRun {
		fmt.Println("\n[DRY RUN] Not sending request")
		return
	}

	target := strings.TrimRight(*base, "/") + path
	fmt.Printf("\nSending to %s...\n", target)

	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Post(target, "application/x-www-form-urlencoded", strings.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error sending request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("Status: %d\n", resp.StatusCode)
	if loc := resp.Header.Get("Location"); loc != "" {
		fmt.Printf("Location: %s\n", loc)
	}
	fmt.Printf("Response: %s\n", string(respBody))

	if resp.StatusCode >= http.StatusInternalServerError {
		os.Exit(1)
	}
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Command healthcheck probes a running fleet-server and exits non-zero when
// it is not ready. It is meant for container HEALTHCHECK instructions.
//
//	healthcheck                        # $FLEET_SERVER/readyz, default http://localhost:8080
//	healthcheck http://fleet:8080/healthz
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultServer = "http://localhost:8080"

func main() {
	target := ""
	if len(os.Args) > 1 {
		target = os.Args[1]
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := probe(ctx, http.DefaultClient, resolveURL(target, os.Getenv("FLEET_SERVER"))); err != nil {
		fmt.Fprintf(os.Stderr, "healthcheck failed: %v\n", err)
		os.Exit(1)
	}
}

// resolveURL returns arg when given, otherwise the readiness endpoint of server.
func resolveURL(arg, server string) string {
	if arg != "" {
		return arg
	}
	if server == "" {
		server = defaultServer
	}
	return strings.TrimRight(server, "/") + "/readyz"
}

func probe(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}
	return nil
}

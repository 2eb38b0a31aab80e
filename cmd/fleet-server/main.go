// Package main is the fleet registry server. It serves the REST API and
// offers one-shot schema migration and seeding.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"
)

func main() {
	// glog is only used for fatal startup errors.
	_ = flag.Set("logtostderr", "true")

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		glog.Flush()
		os.Exit(1)
	}
}

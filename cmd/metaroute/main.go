package main

import (
	"fmt"
	"os"

	"github.com/bronystylecrazy/metaroute"
	"github.com/bronystylecrazy/metaroute/cfg"
)

func main() {
	config := cfg.Options{Path: os.Getenv("METAROUTE_CONFIG"), Optional: true}
	if err := metaroute.New(config).Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

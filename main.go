package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/lyw1217/flight-price-checker/internal/di"
	"github.com/lyw1217/flight-price-checker/internal/structures"
)

func main() {
	flags := &structures.CliFlags{}
	flag.StringVar(&flags.ConfigPath, "config", "config/config.yaml", "path to the YAML config file")
	flag.BoolVar(&flags.DebugMode, "debug", false, "mirror logs to stdout")
	flag.Parse()

	if _, err := di.InitApp(flags); err != nil {
		fmt.Fprintf(os.Stderr, "flight-price-checker: %s\n", err)
		os.Exit(1)
	}
}

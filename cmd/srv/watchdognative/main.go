package main

import (
	"os"

	"github.com/core-tools/hsu-watchdog/pkg/app"
	"github.com/core-tools/hsu-watchdog/pkg/config"
)

// Usage: watchdognative delay timeout certificate host port path healthy repair
func main() {
	os.Exit(app.Main(config.VariantNative, os.Args[1:], os.Stderr))
}

package main

import (
	"os"

	"github.com/core-tools/hsu-watchdog/pkg/app"
	"github.com/core-tools/hsu-watchdog/pkg/config"
)

func main() {
	os.Exit(app.Main(config.VariantPortable, os.Args[1:], os.Stderr))
}

package main

import (
	"github.com/yoonsio/fieldbatch/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev" //nolint:gochecknoglobals // set by the linker

func main() {
	cli.Execute(version)
}

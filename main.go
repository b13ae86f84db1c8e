package main

import (
	"os"

	"github.com/ytget/media-downloader/internal/bootstrap"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

func main() {
	os.Exit(bootstrap.Main(version))
}

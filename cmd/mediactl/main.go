// mediactl exercises the media cryptography and transport core end to end:
// encrypt/upload a local file, then download/decrypt it back, or build a
// media-retry receipt node. It is a demonstration CLI, not a product
// surface; the higher-level messaging/signal protocol that produces and
// consumes DownloadableMessage values lives outside this module.
package main

import (
	"fmt"
	"os"

	"github.com/rescale-labs/wa-media-core/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

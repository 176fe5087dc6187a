package mediakeys

import (
	"strings"

	"github.com/rescale-labs/wa-media-core/internal/mediaerr"
)

// trustedMediaHost is the only origin a DownloadableMessage's url field is
// trusted against; anything else falls back to directPath.
const trustedMediaHost = "https://mmg.whatsapp.net/"

// DirectPathToURL derives the canonical download URL from a server-relative
// direct path. Pure function: same input, same output.
func DirectPathToURL(directPath string) (string, error) {
	if directPath == "" {
		return "", mediaerr.ErrInvalidMediaURL
	}
	return "https://mmg.whatsapp.net" + directPath, nil
}

// ResolveDownloadURL picks between a message's absolute url and its
// directPath, trusting url only when it is rooted at mmg.whatsapp.net.
func ResolveDownloadURL(url, directPath string) (string, error) {
	if strings.HasPrefix(url, trustedMediaHost) {
		return url, nil
	}
	return DirectPathToURL(directPath)
}

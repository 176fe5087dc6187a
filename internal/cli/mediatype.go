package cli

import (
	"fmt"

	"github.com/rescale-labs/wa-media-core/internal/mediakeys"
)

// mediaTypeFlag adapts mediakeys.MediaType to cobra's pflag.Value interface
// so --type is validated against the known media types. No shell
// completion is registered for its values.
type mediaTypeFlag struct {
	value mediakeys.MediaType
}

var validMediaTypes = []mediakeys.MediaType{
	mediakeys.MediaImage,
	mediakeys.MediaVideo,
	mediakeys.MediaAudio,
	mediakeys.MediaDocument,
	mediakeys.MediaSticker,
	mediakeys.MediaThumbnailImage,
	mediakeys.MediaThumbnailVideo,
	mediakeys.MediaProductImage,
	mediakeys.MediaNewsletterImage,
	mediakeys.MediaNewsletterVideo,
	mediakeys.MediaNewsletterAudio,
	mediakeys.MediaNewsletterDocument,
	mediakeys.MediaPTV,
}

func (f *mediaTypeFlag) String() string { return string(f.value) }

func (f *mediaTypeFlag) Set(s string) error {
	for _, t := range validMediaTypes {
		if string(t) == s {
			f.value = t
			return nil
		}
	}
	return fmt.Errorf("unknown media type %q (valid: %v)", s, validMediaTypes)
}

func (f *mediaTypeFlag) Type() string { return "mediaType" }

package mediakeys

// extensionByType gives callers a sensible default file extension for a
// downloaded object, grounded on the mimeToExtension lookup whatsmeow-based
// clients use when naming files on disk. Not part of the wire protocol;
// purely a naming convenience.
var extensionByType = map[MediaType]string{
	MediaImage:              ".jpg",
	MediaVideo:              ".mp4",
	MediaAudio:              ".ogg",
	MediaDocument:           ".bin",
	MediaSticker:            ".webp",
	MediaThumbnailImage:     ".jpg",
	MediaThumbnailVideo:     ".jpg",
	MediaProductImage:       ".jpg",
	MediaNewsletterImage:    ".jpg",
	MediaNewsletterVideo:    ".mp4",
	MediaNewsletterAudio:    ".ogg",
	MediaNewsletterDocument: ".bin",
	MediaPTV:                ".mp4",
}

// DefaultExtension returns a default file extension hint for t, or ".bin"
// for an unrecognised type.
func DefaultExtension(t MediaType) string {
	if ext, ok := extensionByType[t]; ok {
		return ext
	}
	return ".bin"
}

package api

import "strings"

// ImageBaseURL is the prefix of the image CDN.
const ImageBaseURL = "https://image.tmdb.org/t/p"

// ImageSize is a rendition width understood by the image CDN.
type ImageSize string

const (
	ImageW200     ImageSize = "w200"
	ImageW300     ImageSize = "w300"
	ImageW500     ImageSize = "w500"
	ImageW780     ImageSize = "w780"
	ImageOriginal ImageSize = "original"
)

// ImageURL turns a poster or backdrop path into an absolute URL. Paths that
// are already absolute URLs are returned unchanged; an empty path yields
// ("", false). Unknown sizes fall back to w500.
func ImageURL(path string, size ImageSize) (string, bool) {
	if path == "" {
		return "", false
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path, true
	}
	switch size {
	case ImageW200, ImageW300, ImageW500, ImageW780, ImageOriginal:
	default:
		size = ImageW500
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return ImageBaseURL + "/" + string(size) + path, true
}

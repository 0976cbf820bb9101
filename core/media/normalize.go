package media

import (
	"net/url"
	"strings"
)

const (
	// deliveryHost is the provider's asset-hosting domain; URLs on any other
	// host are passed through untouched.
	deliveryHost = "res.cloudinary.com"

	// uploadSegment is the fixed path segment preceding the asset identifier.
	uploadSegment = "/upload/"

	// attachmentFlag makes the browser download the asset instead of
	// rendering it inline.
	attachmentFlag = "fl_attachment"
)

// NormalizeDownloadURL rewrites a provider delivery URL so the asset is served
// as a download. The flag is a pure path transform: it applies identically to
// every resource kind. Non-provider URLs and already-flagged URLs come back
// unchanged, so the function is idempotent.
func NormalizeDownloadURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host != deliveryHost {
		return raw
	}

	// only the path carries the segment; the query and fragment must come
	// back byte-for-byte
	pathEnd := len(raw)
	if j := strings.IndexAny(raw, "?#"); j >= 0 {
		pathEnd = j
	}
	i := strings.Index(raw[:pathEnd], uploadSegment)
	if i < 0 {
		return raw
	}

	restPath := raw[i+len(uploadSegment) : pathEnd]
	if restPath == attachmentFlag || strings.HasPrefix(restPath, attachmentFlag+"/") {
		return raw
	}
	return raw[:i+len(uploadSegment)] + attachmentFlag + "/" + raw[i+len(uploadSegment):]
}

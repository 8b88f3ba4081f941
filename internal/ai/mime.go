package ai

import (
	"net/http"
	"strings"
)

// ImageMIME names the format of an image about to be sent inline. Sniffing covers JPEG,
// PNG, GIF and WebP; HEIF photos from phones are recognized by their ftyp brand.
func ImageMIME(b []byte) string {
	if ct := http.DetectContentType(b); strings.HasPrefix(ct, "image/") {
		return ct
	}
	if len(b) >= 12 && string(b[4:8]) == "ftyp" {
		switch string(b[8:12]) {
		case "heic", "heix", "heim", "heis":
			return "image/heic"
		case "mif1", "msf1", "heif":
			return "image/heif"
		}
	}
	return "application/octet-stream"
}

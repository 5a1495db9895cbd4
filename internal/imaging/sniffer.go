package imaging

import "bytes"

type Format string

const (
	FormatPNG     Format = "PNG"
	FormatJPEG    Format = "JPEG"
	FormatGIF     Format = "GIF"
	FormatWEBP    Format = "WEBP"
	FormatAVIF    Format = "AVIF"
	FormatBMP     Format = "BMP"
	FormatUnknown Format = "UNKNOWN"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// DetectFormat sniffs the true encoding from the byte content. CDN
// content-type headers and file extensions are known to mislabel AVIF as
// JPEG, so neither is ever consulted.
func DetectFormat(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, pngSignature):
		return FormatPNG
	case bytes.HasPrefix(data, []byte{0xff, 0xd8, 0xff}):
		return FormatJPEG
	case bytes.HasPrefix(data, []byte("GIF87a")), bytes.HasPrefix(data, []byte("GIF89a")):
		return FormatGIF
	case bytes.HasPrefix(data, []byte("RIFF")) && len(data) >= 12 && bytes.Equal(data[8:12], []byte("WEBP")):
		return FormatWEBP
	case containsAVIFBrand(data):
		return FormatAVIF
	case bytes.HasPrefix(data, []byte("BM")):
		return FormatBMP
	default:
		return FormatUnknown
	}
}

func containsAVIFBrand(data []byte) bool {
	head := data
	if len(head) > 20 {
		head = head[:20]
	}

	return bytes.Contains(head, []byte("ftypavif")) || bytes.Contains(head, []byte("ftypavis"))
}

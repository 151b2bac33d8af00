package storage

import (
	"mime"
	"strings"
)

type MIME string

const (
	Unknown   MIME = "unknown"
	TextPlain MIME = "text/plain"

	ApplicationPDF MIME = "application/pdf"

	ImagePNG  MIME = "image/png"
	ImageJPEG MIME = "image/jpeg"
	ImageGIF  MIME = "image/gif"
	ImageWebP MIME = "image/webp"

	AudioMPEG MIME = "audio/mpeg"
	AudioWAV  MIME = "audio/wav"

	VideoMP4       MIME = "video/mp4"
	VideoAVI       MIME = "video/x-msvideo"
	VideoQuickTime MIME = "video/quicktime"
)

var extensionMIME = map[string]MIME{
	"txt":  TextPlain,
	"pdf":  ApplicationPDF,
	"png":  ImagePNG,
	"jpg":  ImageJPEG,
	"jpeg": ImageJPEG,
	"gif":  ImageGIF,
	"webp": ImageWebP,
	"mp3":  AudioMPEG,
	"wav":  AudioWAV,
	"mp4":  VideoMP4,
	"avi":  VideoAVI,
	"mov":  VideoQuickTime,
}

// ExpectedMIME is the media type an allowed extension should carry, or Unknown.
func ExpectedMIME(ext string) MIME {
	if m, ok := extensionMIME[strings.ToLower(strings.TrimPrefix(ext, "."))]; ok {
		return m
	}
	return Unknown
}

// Matches compares a detected media type, parameters included, against the expected one.
func Matches(detected string, expected MIME) bool {
	mt, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return false
	}
	return mt == string(expected)
}

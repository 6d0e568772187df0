package pipeline

import (
	"path/filepath"
	"strings"
)

// supportedFormats lists the audio extensions the front-end records or
// accepts for upload.
var supportedFormats = map[string]bool{
	".webm": true,
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".ogg":  true,
	".flac": true,
}

// ValidateAudioFormat checks whether the filename carries a supported
// audio extension.
func ValidateAudioFormat(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return supportedFormats[ext]
}

// Package asset converts media files to and from the base64 data URLs that rows
// and characters store.
package asset

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotDataURL reports a payload that is not a base64 data URL.
var ErrNotDataURL = errors.New("not a base64 data URL")

var extensionTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
	".mp4":  "video/mp4",
	".webm": "video/webm",
}

// Encode builds a data URL for data.
func Encode(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// FromFile reads path into a data URL. The media type is sniffed from the
// content and falls back to the file extension.
func FromFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read asset: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("asset %s is empty", path)
	}
	mimeType := http.DetectContentType(data)
	if mimeType == "application/octet-stream" {
		if byExt, ok := extensionTypes[strings.ToLower(filepath.Ext(path))]; ok {
			mimeType = byExt
		}
	}
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return Encode(mimeType, data), nil
}

// Decode splits a data URL into its media type and raw bytes.
func Decode(dataURL string) (string, []byte, error) {
	mimeType, payload, err := split(dataURL)
	if err != nil {
		return "", nil, err
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data URL: %w", err)
	}
	return mimeType, data, nil
}

// WriteFile decodes a data URL into path.
func WriteFile(path, dataURL string) error {
	_, data, err := Decode(dataURL)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create asset directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write asset: %w", err)
	}
	return nil
}

// MediaType returns the media type of a data URL, or "" when it is not one.
func MediaType(dataURL string) string {
	mimeType, _, err := split(dataURL)
	if err != nil {
		return ""
	}
	return mimeType
}

// IsVideo reports whether the payload is a video data URL.
func IsVideo(dataURL string) bool {
	return strings.HasPrefix(MediaType(dataURL), "video/")
}

func split(dataURL string) (string, string, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", "", ErrNotDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", "", ErrNotDataURL
	}
	mimeType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", "", ErrNotDataURL
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return mimeType, payload, nil
}

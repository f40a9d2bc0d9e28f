package util

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// ContentTypeByName maps a file extension to a MIME type. It returns an empty
// string when the extension is unknown.
func ContentTypeByName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}

	if known, ok := extraContentTypes[ext]; ok {
		return known
	}

	return mime.TypeByExtension(ext)
}

// extraContentTypes covers extensions missing from common mime.types files.
var extraContentTypes = map[string]string{
	".7z":   "application/x-7z-compressed",
	".aac":  "audio/aac",
	".avif": "image/avif",
	".bz2":  "application/x-bzip2",
	".csv":  "text/csv; charset=utf-8",
	".epub": "application/epub+zip",
	".flac": "audio/flac",
	".gz":   "application/gzip",
	".iso":  "application/x-iso9660-image",
	".md":   "text/markdown; charset=utf-8",
	".mkv":  "video/x-matroska",
	".mp3":  "audio/mpeg",
	".mp4":  "video/mp4",
	".ogg":  "audio/ogg",
	".opus": "audio/opus",
	".rar":  "application/vnd.rar",
	".tar":  "application/x-tar",
	".txt":  "text/plain; charset=utf-8",
	".wav":  "audio/wav",
	".webm": "video/webm",
	".webp": "image/webp",
	".zip":  "application/zip",
}

func DetectMIMEFromFile(file *os.File) (string, error) {
	if _, err := file.Seek(0, 0); err != nil {
		return "", err
	}

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}

	if _, err := file.Seek(0, 0); err != nil {
		return "", err
	}

	return http.DetectContentType(buffer[:n]), nil
}

func IsImageExtension(extension string) bool {
	switch strings.ToLower(strings.TrimSpace(extension)) {
	case ".png", ".jpg", ".jpeg", ".jpe", ".jfif", ".gif", ".webp", ".bmp", ".dib", ".tiff", ".tif":
		return true
	default:
		return false
	}
}

package util

import (
	"archive/zip"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
)

// NewZipWriter returns a zip writer on w that deflates entries with the
// klauspost compressor at BestSpeed.
func NewZipWriter(w io.Writer) *zip.Writer {
	zipWriter := zip.NewWriter(w)
	zipWriter.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestSpeed)
	})

	return zipWriter
}

// FileHeader builds the header for a regular file entry named archivePath.
// Sizes are left unset; the writer records them in the data descriptor once
// the entry is written.
func FileHeader(archivePath string, info fs.FileInfo) *zip.FileHeader {
	header := &zip.FileHeader{
		Name:     archivePath,
		Method:   zip.Deflate,
		Modified: info.ModTime(),
	}
	header.SetMode(info.Mode().Perm())

	return header
}

// DirectoryHeader builds the header for a directory entry; the name gets a
// trailing slash.
func DirectoryHeader(archivePath string, modified time.Time) *zip.FileHeader {
	if !strings.HasSuffix(archivePath, "/") {
		archivePath += "/"
	}

	header := &zip.FileHeader{
		Name:     archivePath,
		Method:   zip.Store,
		Modified: modified,
	}
	header.SetMode(fs.ModeDir | 0o755)

	return header
}

// ArchiveName joins slash-separated segments into a relative archive path.
func ArchiveName(parent string, name string) string {
	if parent == "" {
		return name
	}

	return path.Join(parent, name)
}

// ArchiveFilename returns the download filename for an archive of dirPath.
func ArchiveFilename(dirPath string) string {
	base := path.Base(strings.Trim(filepath.ToSlash(dirPath), "/"))
	if base == "." || base == "/" || base == "" {
		base = "archive"
	}

	return base + ".zip"
}

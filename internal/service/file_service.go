package service

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"math"
	"net/http"
	"os"
	"path"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"go-file-browser/internal/model"
	"go-file-browser/internal/storage"
	"go-file-browser/internal/util"
	"go-file-browser/pkg/apierror"
)

const (
	DefaultThumbnailSize = 256
	MinThumbnailSize     = 32
	MaxThumbnailSize     = 1024

	defaultThumbnailMaxPixels = 40_000_000
)

// FileService serves single files and image previews.
type FileService struct {
	store     storage.Storage
	maxPixels int
}

func NewFileService(store storage.Storage, thumbnailMaxPixels int) *FileService {
	if thumbnailMaxPixels <= 0 {
		thumbnailMaxPixels = defaultThumbnailMaxPixels
	}

	return &FileService{store: store, maxPixels: thumbnailMaxPixels}
}

// GetFile opens a regular file for download. The returned info comes from
// the open handle. The caller closes the file.
func (s *FileService) GetFile(clientPath string) (*os.File, fs.FileInfo, string, error) {
	current := util.NormalizeClientPath(clientPath)

	info, err := s.store.Stat(current)
	if err != nil {
		return nil, nil, "", classifyFSError(err, current)
	}

	if info.IsDir() {
		return nil, nil, "", apierror.Wrap(model.ErrInvalidInput, "BAD_REQUEST", "path points to a directory", current, http.StatusBadRequest)
	}

	if !info.Mode().IsRegular() {
		return nil, nil, "", apierror.Wrap(model.ErrInvalidInput, "BAD_REQUEST", "path is not a regular file", current, http.StatusBadRequest)
	}

	file, err := s.store.OpenForRead(current)
	if err != nil {
		return nil, nil, "", classifyFSError(err, current)
	}

	handleInfo, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, nil, "", classifyFSError(err, current)
	}

	contentType := util.ContentTypeByName(current)
	if contentType == "" {
		contentType, err = util.DetectMIMEFromFile(file)
		if err != nil {
			_ = file.Close()
			return nil, nil, "", classifyFSError(err, current)
		}
	}

	return file, handleInfo, contentType, nil
}

// GetThumbnail decodes the image at clientPath and returns it scaled to fit
// a size×size box, JPEG encoded. Images are never upscaled.
func (s *FileService) GetThumbnail(ctx context.Context, clientPath string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultThumbnailSize
	}
	if size < MinThumbnailSize || size > MaxThumbnailSize {
		return nil, apierror.Wrap(model.ErrInvalidInput, "BAD_REQUEST", "thumbnail size out of range", "size must be between 32 and 1024", http.StatusBadRequest)
	}

	file, info, _, err := s.GetFile(clientPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if !util.IsImageExtension(path.Ext(info.Name())) {
		return nil, unsupportedImage("file extension is not a supported image type")
	}

	config, _, err := image.DecodeConfig(file)
	if err != nil {
		return nil, unsupportedImage(err.Error())
	}

	if config.Width <= 0 || config.Height <= 0 {
		return nil, unsupportedImage("invalid image dimensions")
	}

	if int64(config.Width)*int64(config.Height) > int64(s.maxPixels) {
		return nil, apierror.Wrap(model.ErrInvalidInput, "IMAGE_TOO_LARGE", "image exceeds the thumbnail pixel limit", info.Name(), http.StatusRequestEntityTooLarge)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, classifyFSError(err, clientPath)
	}

	src, _, err := image.Decode(file)
	if err != nil {
		return nil, unsupportedImage(err.Error())
	}

	return encodeThumbnail(src, size)
}

func encodeThumbnail(src image.Image, size int) ([]byte, error) {
	bounds := src.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	scale := float64(size) / float64(max(width, height))
	if scale > 1 {
		scale = 1
	}

	targetWidth := max(int(math.Round(float64(width)*scale)), 1)
	targetHeight := max(int(math.Round(float64(height)*scale)), 1)

	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: 85}); err != nil {
		return nil, apierror.Wrap(model.ErrIO, "IO_FAILURE", "thumbnail encoding failed", err.Error(), http.StatusInternalServerError)
	}

	return out.Bytes(), nil
}

func unsupportedImage(details string) error {
	return apierror.Wrap(model.ErrInvalidInput, "UNSUPPORTED_TYPE", "cannot decode image", details, http.StatusUnsupportedMediaType)
}

package images

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	// Registers the webp decoder; webp is accepted for upload but
	// re-encoded on save.
	_ "golang.org/x/image/webp"
)

// allowedExtensions is the upload allow-list. Anything else is
// rejected before the file is read.
var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// Allowed reports whether the filename carries an allow-listed image
// extension.
func Allowed(filename string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Save decodes an uploaded image, resizes it to fit within the given
// bounding box, re-encodes it and writes it under dir with a generated
// name. It returns the stored filename.
//
// webp uploads are accepted but re-encoded as png, since the encoder
// side of webp is not supported.
func Save(file *multipart.FileHeader, dir string, maxBounds int) (string, error) {
	if !Allowed(file.Filename) {
		return "", fmt.Errorf("file type not allowed: %s", file.Filename)
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	// Fit preserves aspect ratio and never upscales.
	if img.Bounds().Dx() > maxBounds || img.Bounds().Dy() > maxBounds {
		img = imaging.Fit(img, maxBounds, maxBounds, imaging.Lanczos)
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext == ".webp" {
		ext = ".png"
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}

	name := uuid.NewString() + ext
	if err := imaging.Save(img, filepath.Join(dir, name)); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}

	return name, nil
}

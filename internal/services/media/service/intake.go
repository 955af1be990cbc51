package service

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"

	perr "jagapadi/internal/platform/errors"
	dom "jagapadi/internal/services/media/domain"
)

// Intake messages
const (
	MsgNoFile   = "Tidak ada gambar yang dipilih"
	MsgNotImage = "File yang dipilih bukan gambar. Pilih file JPG, PNG, atau format gambar lainnya."
	MsgTooSmall = "File terlalu kecil. Pilih gambar yang valid."
)

// Intake sniffs data and checks it against limits. The declared filename is
// only used for display; the type always comes from the bytes
func Intake(limits dom.Limits, filename string, data []byte) (dom.Image, error) {
	if len(data) == 0 {
		return dom.Image{}, perr.Validationf(MsgNoFile)
	}
	mt := mimetype.Detect(data)
	mime := strings.TrimSpace(strings.SplitN(mt.String(), ";", 2)[0])
	if !strings.HasPrefix(mime, "image/") {
		return dom.Image{}, perr.WithField(perr.Validationf(MsgNotImage), "file")
	}
	if !slices.Contains(dom.Allowed, mime) {
		return dom.Image{}, perr.WithField(
			perr.Validationf("Format file %s tidak didukung. Gunakan JPG, PNG, GIF, atau WebP.", mime), "file")
	}
	size := int64(len(data))
	if limits.MaxBytes > 0 && size > limits.MaxBytes {
		return dom.Image{}, perr.WithField(perr.Validationf("Ukuran file terlalu besar (%s). Maksimal %s.",
			humanize.Bytes(uint64(size)), humanize.Bytes(uint64(limits.MaxBytes))), "file")
	}
	if size < limits.MinBytes {
		return dom.Image{}, perr.WithField(perr.Validationf(MsgTooSmall), "file")
	}
	return dom.Image{Filename: displayName(filename, mt.Extension()), MIME: mime, Data: data}, nil
}

// CaptureName names a camera frame the way the gallery expects
func CaptureName(at time.Time) string {
	return "camera_capture_" + strings.NewReplacer(":", "-", ".", "-").Replace(at.UTC().Format("2006-01-02T15:04:05.000Z")) + ".jpg"
}

func displayName(name, ext string) string {
	name = strings.TrimSpace(filepath.Base(filepath.ToSlash(name)))
	if name == "" || name == "." || name == "/" {
		return fmt.Sprintf("gambar%s", ext)
	}
	return name
}

package service

import (
	"strings"

	perr "jagapadi/internal/platform/errors"
	dom "jagapadi/internal/services/media/domain"
)

// Camera messages
const (
	MsgFallback          = "Membuka file picker sebagai alternatif..."
	MsgCaptured          = "📷 Foto berhasil diambil!"
	MsgCaptureFailed     = "Gagal mengambil foto"
	MsgCameraNotOpen     = "Kamera belum dibuka"
	MsgCameraNeedsLink   = "Hubungkan ke server terlebih dahulu"
	msgCameraGeneric     = "Gagal mengakses kamera"
	msgCameraUnsupported = "Kamera tidak didukung di device ini"
)

var accessMessages = map[dom.AccessKind]string{
	dom.AccessDenied:          "Akses kamera ditolak. Berikan izin kamera di browser.",
	dom.AccessNotFound:        "Kamera tidak ditemukan di device ini.",
	dom.AccessBusy:            "Kamera sedang digunakan aplikasi lain.",
	dom.AccessOverconstrained: "Pengaturan kamera tidak didukung.",
	dom.AccessInsecure:        "Koneksi tidak aman. Gunakan HTTPS untuk akses kamera.",
	dom.AccessUnsupported:     msgCameraUnsupported,
}

// MapAccessError turns a platform failure name and message into a MediaAccessError
// carrying the message the user should see
func MapAccessError(name, msg string) error {
	if m, ok := accessMessages[dom.AccessKind(strings.TrimSpace(name))]; ok {
		return perr.WithOp(perr.New(perr.ErrorCodeMediaAccess, m), name)
	}
	if strings.TrimSpace(msg) == "" {
		return perr.New(perr.ErrorCodeMediaAccess, msgCameraGeneric)
	}
	return perr.Newf(perr.ErrorCodeMediaAccess, "Error kamera: %s", msg)
}

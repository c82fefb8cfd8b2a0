package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden        ErrCode = "FORBIDDEN"
	ErrPlayerAccessOnly ErrCode = "PLAYER_ACCESS_ONLY"
	ErrTutorAccessOnly  ErrCode = "TUTOR_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Game-specific ─────────────────────────────────────────────────
	ErrGameNotFound        ErrCode = "GAME_NOT_FOUND"
	ErrGameCannotLoad      ErrCode = "GAME_CANNOT_LOAD"
	ErrSessionNotFound     ErrCode = "SESSION_NOT_FOUND"
	ErrSessionNotCompleted ErrCode = "SESSION_NOT_COMPLETED"
	ErrNothingToReview     ErrCode = "NOTHING_TO_REVIEW"
	ErrReviewNotSupported  ErrCode = "REVIEW_NOT_SUPPORTED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "Token autentikasi diperlukan."
	case ErrTokenInvalid:
		return "Token autentikasi tidak valid."
	case ErrTokenExpired:
		return "Token autentikasi telah kedaluwarsa."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "Anda tidak memiliki izin untuk mengakses sumber daya ini."
	case ErrPlayerAccessOnly:
		return "Sumber daya ini terbatas untuk pemain."
	case ErrTutorAccessOnly:
		return "Sumber daya ini terbatas untuk tutor."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validasi gagal. Silakan periksa masukan Anda."
	case ErrInvalidID:
		return "Format ID tidak valid."
	case ErrInvalidPayload:
		return "Payload permintaan tidak valid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Sumber daya tidak ditemukan."

	// ─── Game-specific ─────────────────────────────────────────────────
	case ErrGameNotFound:
		return "Permainan tidak ditemukan."
	case ErrGameCannotLoad:
		return "Permainan tidak dapat dimuat."
	case ErrSessionNotFound:
		return "Sesi permainan tidak ditemukan atau sudah berakhir."
	case ErrSessionNotCompleted:
		return "Sesi permainan belum selesai."
	case ErrNothingToReview:
		return "Tidak ada kartu yang perlu diulang."
	case ErrReviewNotSupported:
		return "Jenis permainan ini tidak mendukung pengulangan."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Terlalu banyak permintaan. Silakan coba lagi nanti."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Terjadi kesalahan server internal."
	default:
		return "Terjadi kesalahan yang tidak terduga."
	}
}

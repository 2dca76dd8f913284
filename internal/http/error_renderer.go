package httpx

import (
	"errors"
	"net/http"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	apperrors "github.com/linkforge/linkforge-api/internal/errors"
)

// WriteAppError maps an application error to an HTTP status and writes the
// JSON error body. Unknown errors become opaque 500s so internal details never
// leak to clients.
func WriteAppError(w http.ResponseWriter, err error) {
	code, errCode := classifyAppError(err)
	out := err
	if code == http.StatusInternalServerError {
		out = errors.New("internal server error")
	}
	WriteError(w, ErrorParams{Code: code, ErrCode: errCode, Err: out})
}

func classifyAppError(err error) (status int, errCode string) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return statusForCode(appErr.Code), string(appErr.Code)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return http.StatusConflict, string(apperrors.ErrCodeConflict)
		case pgerrcode.ForeignKeyViolation:
			return http.StatusConflict, string(apperrors.ErrCodeForeignKey)
		}
	}

	return http.StatusInternalServerError, string(apperrors.ErrCodeInternal)
}

func statusForCode(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest
	case apperrors.ErrCodeConflict, apperrors.ErrCodeForeignKey:
		return http.StatusConflict
	case apperrors.ErrCodeSignature:
		return http.StatusBadRequest
	case apperrors.ErrCodeUpstream:
		return http.StatusBadGateway
	case apperrors.ErrCodeStorage:
		return http.StatusServiceUnavailable
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

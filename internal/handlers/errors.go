package handlers

import (
	"net/http"

	"taskflow/internal/errs"
	"taskflow/internal/logger"

	"go.uber.org/zap"
)

func handleBusinessError(w http.ResponseWriter, err error) bool {
	businessErr, ok := errs.As(err)
	if !ok {
		return false
	}

	statusCode := mapBusinessErrorToHTTP(businessErr.Code)

	logger.Warn("HTTP: Бизнес-ошибка",
		zap.String("error_code", businessErr.Code),
		zap.String("message", businessErr.Message),
		zap.Int("http_status", statusCode))

	responseWithJSON(w, statusCode,
		toPayload("error", businessErr.Code),
		toPayload("message", businessErr.Message),
		toPayload("details", businessErr.Details),
	)
	return true
}

func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case errs.CodeNotFound:
		return http.StatusNotFound
	case errs.CodeValidation:
		return http.StatusBadRequest
	case errs.CodeInvalidState, errs.CodeVersionConflict, errs.CodeNotDeleted:
		return http.StatusConflict
	case errs.CodeTaskDeleted:
		return http.StatusGone
	case errs.CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// serviceError отвечает бизнес-ошибкой или 500
func serviceError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	if handleBusinessError(w, err) {
		return
	}

	logger.Error("HTTP: Ошибка Service", err,
		zap.String("operation", operation),
		zap.String("client_ip", r.RemoteAddr))

	responseWithError(w, http.StatusInternalServerError, "внутренняя ошибка сервера")
}

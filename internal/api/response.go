package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	apperrors "ms-lounge/internal/errors"
	"ms-lounge/internal/logger"
	"ms-lounge/internal/utils"

	"github.com/go-chi/chi/v5"
)

// statusFor maps an error code to its HTTP status.
func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeConflict,
		apperrors.ErrCodeDuplicateRegistration,
		apperrors.ErrCodeInvalidTransition,
		apperrors.ErrCodeShiftAlreadyOpen,
		apperrors.ErrCodeTableOccupied,
		apperrors.ErrCodeShiftNumberUnavailable:
		return http.StatusConflict
	case apperrors.ErrCodeInsufficientBalance:
		return http.StatusUnprocessableEntity
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest
	case apperrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrCodeForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func sendJSONResponse(w http.ResponseWriter, status int, body utils.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func sendSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	sendJSONResponse(w, status, utils.SuccessResponse(message, data))
}

// sendError writes the error envelope. Internal errors are logged and their
// details are not exposed.
func sendError(w http.ResponseWriter, log *logger.Logger, err error) {
	code := apperrors.CodeOf(err)
	status := statusFor(code)

	message := err.Error()
	if appErr := apperrors.GetAppError(err); appErr != nil {
		message = appErr.Message
	}
	if status == http.StatusInternalServerError {
		log.Error("API", err.Error())
		message = "internal error"
	}
	sendJSONResponse(w, status, utils.ErrorResponse(string(code), message))
}

func sendBadRequest(w http.ResponseWriter, format string, args ...any) {
	sendJSONResponse(w, http.StatusBadRequest, utils.ErrorResponse(string(apperrors.ErrCodeValidation), fmt.Sprintf(format, args...)))
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.Validation("invalid request body: %v", err)
	}
	return nil
}

func int64Param(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.Validation("invalid %s %q", name, raw)
	}
	return v, nil
}

func intParam(r *http.Request, name string) (int, error) {
	v, err := int64Param(r, name)
	return int(v), err
}

// handle adapts a handler that returns an error.
func handle(log *logger.Logger, fn func(w http.ResponseWriter, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			sendError(w, log, err)
		}
	}
}

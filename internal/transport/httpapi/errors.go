package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-faster/errors"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderengine/internal/domain"
)

// Коды ошибок в теле ответа.
const (
	codeInvalidJSON        = "invalid_json"
	codeInvalidArgument    = "invalid_argument"
	codeNotFound           = "not_found"
	codeIneligibleDiscount = "ineligible_discount"
	codeVersionConflict    = "version_conflict"
	codeInternal           = "internal_error"
)

// ErrorResponse — тело ответа с ошибкой.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
	Gate    string `json:"gate,omitempty"`
}

// statusFor сопоставляет ошибку движка HTTP-статусу и коду.
func statusFor(err error) (int, ErrorResponse) {
	var argErr *domain.ArgumentError
	var gateErr *domain.IneligibleDiscountError

	switch {
	case errors.As(err, &argErr):
		return http.StatusBadRequest, ErrorResponse{Error: codeInvalidArgument, Message: err.Error(), Field: argErr.Field}
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, ErrorResponse{Error: codeInvalidArgument, Message: err.Error()}
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrItemNotFound):
		return http.StatusNotFound, ErrorResponse{Error: codeNotFound, Message: err.Error()}
	case errors.As(err, &gateErr):
		return http.StatusUnprocessableEntity, ErrorResponse{Error: codeIneligibleDiscount, Message: err.Error(), Gate: string(gateErr.Gate)}
	case errors.Is(err, domain.ErrOrderVersionConflict):
		return http.StatusConflict, ErrorResponse{Error: codeVersionConflict, Message: err.Error()}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: codeInternal, Message: "internal error"}
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.WithError(err).WithFields(log.Fields{
			"path":       r.URL.Path,
			"request_id": middleware.GetReqID(r.Context()),
		}).Error("request failed")
	}
	writeJSON(w, status, body)
}

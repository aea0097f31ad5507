package http

import (
	"errors"
	"net/http"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/go-chi/chi/v5/middleware"
)

var errStepRefused = errors.New("step refused: the flow already has a start step")

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSnapshotNotFound), errors.Is(err, domain.ErrPreviewNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrMalformedSnapshot):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownNode), errors.Is(err, domain.ErrRunawayFlow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errStepRefused):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.Logger.Error("request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "err", err)
	} else {
		s.Logger.Debug("request rejected", "path", r.URL.Path, "status", status, "err", err)
	}
	http.Error(w, err.Error(), status)
}

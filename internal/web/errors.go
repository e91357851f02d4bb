package web

import (
	"errors"
	"net/http"

	"github.com/jogardn/storefront/internal/auth"
	"github.com/jogardn/storefront/internal/storefront"
	"github.com/sirupsen/logrus"
)

func statusFor(err error) int {
	var verr *storefront.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, storefront.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// fail maps err to a status page. Only server-side failures are logged as
// errors; the rest are the client's doing.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.WithFields(logrus.Fields{
			"path":       r.URL.Path,
			"request_id": requestIDFrom(r.Context()),
		}).WithError(err).Error("Request failed")
	}
	s.renderError(w, r, status)
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int) {
	message := "Something went wrong. Please try again later."
	switch status {
	case http.StatusNotFound:
		message = "The page you are looking for does not exist."
	case http.StatusBadRequest:
		message = "The request could not be understood."
	}
	s.render(w, r, status, "error", pageData{
		Title:   http.StatusText(status),
		Status:  status,
		Message: message,
	})
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	if data.Admin == "" {
		data.Admin = adminFrom(r.Context())
	}
	if err := s.pages.render(w, status, page, data); err != nil {
		s.logger.WithError(err).WithField("page", page).Error("Failed to render page")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

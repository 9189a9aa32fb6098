package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/MatejStrlek/uni-course-management/internal/auth"
	"github.com/MatejStrlek/uni-course-management/internal/enrollment"
	"github.com/MatejStrlek/uni-course-management/internal/grading"
	"github.com/MatejStrlek/uni-course-management/internal/model"
	"github.com/MatejStrlek/uni-course-management/internal/repository"
	"github.com/MatejStrlek/uni-course-management/internal/session"
)

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// writeDomainError maps business errors to HTTP responses. Anything unmapped
// is a 500.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrAuthentication):
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
	case errors.Is(err, session.ErrTooManyAttempts):
		writeError(w, http.StatusTooManyRequests, "too_many_attempts")
	case errors.Is(err, auth.ErrExpiredToken):
		writeError(w, http.StatusUnauthorized, "expired_token")
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, "invalid_token")
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, enrollment.ErrAlreadyEnrolled):
		writeError(w, http.StatusBadRequest, "already_enrolled")
	case errors.Is(err, enrollment.ErrNoActiveEnrollment):
		writeError(w, http.StatusBadRequest, "no_active_enrollment")
	case errors.Is(err, enrollment.ErrInactiveCourse):
		writeError(w, http.StatusBadRequest, "inactive_course")
	case errors.Is(err, grading.ErrInvalidGrade):
		writeError(w, http.StatusBadRequest, "invalid_grade")
	case errors.Is(err, repository.ErrUsernameTaken):
		writeError(w, http.StatusConflict, "username_taken")
	case errors.Is(err, repository.ErrCourseCodeTaken):
		writeError(w, http.StatusConflict, "course_code_taken")
	default:
		writeError(w, http.StatusInternalServerError, "server_error")
	}
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return host
}

// Package http is the HTTP surface of the course management service.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/MatejStrlek/uni-course-management/internal/config"
	"github.com/MatejStrlek/uni-course-management/internal/enrollment"
	"github.com/MatejStrlek/uni-course-management/internal/grading"
	"github.com/MatejStrlek/uni-course-management/internal/metrics"
	"github.com/MatejStrlek/uni-course-management/internal/model"
	"github.com/MatejStrlek/uni-course-management/internal/repository"
	"github.com/MatejStrlek/uni-course-management/internal/session"
)

type Server struct {
	cfg      config.Config
	store    *repository.Store
	sessions *session.Manager
	ledger   *enrollment.Ledger
	grades   *grading.Engine
	metrics  *metrics.Collector
	gatherer prometheus.Gatherer
	authRate *ipRateLimiter
}

func NewServer(
	cfg config.Config,
	store *repository.Store,
	sessions *session.Manager,
	ledger *enrollment.Ledger,
	grades *grading.Engine,
	collector *metrics.Collector,
	gatherer prometheus.Gatherer,
) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		sessions: sessions,
		ledger:   ledger,
		grades:   grades,
		metrics:  collector,
		gatherer: gatherer,
		authRate: newIPRateLimiter(cfg.AuthRatePerMinute, cfg.AuthRateBurst),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.gatherer != nil {
		r.Handle("/metrics", metrics.Handler(s.gatherer))
	}

	r.Route("/auth", func(r chi.Router) {
		r.Use(s.authRate.middleware)
		r.Post("/login", s.handleLogin)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/logout", s.handleLogout)
		r.With(s.authMiddleware).Get("/me", s.handleMe)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Route("/users", func(r chi.Router) {
			r.Use(s.requireRole(model.RoleAdmin))
			r.Get("/", s.handleListUsers)
			r.Post("/", s.handleCreateUser)
			r.Get("/{userID}", s.handleGetUser)
			r.Put("/{userID}", s.handleUpdateUser)
			r.Put("/{userID}/password", s.handleChangePassword)
			r.Delete("/{userID}", s.handleDeactivateUser)
		})

		r.Route("/courses", func(r chi.Router) {
			r.Get("/", s.handleListCourses)
			r.Get("/code/{code}", s.handleGetCourseByCode)
			r.Get("/{courseID}", s.handleGetCourse)
			r.With(s.requireRole(model.RoleAdmin)).Post("/", s.handleCreateCourse)
			r.With(s.requireRole(model.RoleAdmin)).Put("/{courseID}", s.handleUpdateCourse)
			r.With(s.requireRole(model.RoleAdmin)).Delete("/{courseID}", s.handleDeactivateCourse)

			r.With(s.requireRole(model.RoleProfessor)).Get("/{courseID}/enrollments", s.handleCourseEnrollments)
			r.With(s.requireRole(model.RoleProfessor)).Get("/{courseID}/grades", s.handleCourseGrades)
		})

		r.Route("/enrollments", func(r chi.Router) {
			r.With(s.requireRole(model.RoleStudent)).Get("/", s.handleMyEnrollments)
			r.With(s.requireRole(model.RoleStudent)).Post("/{courseID}", s.handleEnroll)
			r.With(s.requireRole(model.RoleStudent)).Delete("/{courseID}", s.handleDrop)

			r.Get("/{enrollmentID}/grade", s.handleGetGrade)
			r.With(s.requireRole(model.RoleProfessor)).Post("/{enrollmentID}/grade", s.handleAssignGrade)
		})

		r.With(s.requireRole(model.RoleProfessor)).Get("/students/{studentID}/grades", s.handleStudentGrades)
	})

	return r
}

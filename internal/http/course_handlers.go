package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MatejStrlek/uni-course-management/internal/model"
)

type courseRequest struct {
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Credits      int     `json:"credits"`
	MaxStudents  int     `json:"maxStudents"`
	Semester     string  `json:"semester"`
	AcademicYear string  `json:"academicYear"`
	Active       *bool   `json:"active,omitempty"`
	ProfessorID  *string `json:"professorId,omitempty"`
}

type courseResponse struct {
	ID           string  `json:"id"`
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Credits      int     `json:"credits"`
	MaxStudents  int     `json:"maxStudents"`
	Semester     string  `json:"semester"`
	AcademicYear string  `json:"academicYear"`
	Active       bool    `json:"active"`
	ProfessorID  *string `json:"professorId,omitempty"`
}

func coursePayload(c model.Course) courseResponse {
	return courseResponse{
		ID:           c.ID,
		Code:         c.Code,
		Name:         c.Name,
		Description:  c.Description,
		Credits:      c.Credits,
		MaxStudents:  c.MaxStudents,
		Semester:     c.Semester,
		AcademicYear: c.AcademicYear,
		Active:       c.Active,
		ProfessorID:  c.ProfessorID,
	}
}

func (s *Server) validateProfessor(r *http.Request, professorID *string) (string, bool) {
	if professorID == nil {
		return "", true
	}
	professor, err := s.store.UserByID(r.Context(), *professorID)
	if err != nil {
		return "professor_not_found", false
	}
	if professor.Role != model.RoleProfessor {
		return "not_a_professor", false
	}
	return "", true
}

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	var (
		courses []model.Course
		err     error
	)
	if professorID := r.URL.Query().Get("professorId"); professorID != "" {
		courses, err = s.store.CoursesByProfessor(r.Context(), professorID)
	} else {
		activeOnly := r.URL.Query().Get("activeOnly") == "true"
		courses, err = s.store.ListCourses(r.Context(), activeOnly)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]courseResponse, 0, len(courses))
	for _, c := range courses {
		out = append(out, coursePayload(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	course, err := s.store.CourseByID(r.Context(), chi.URLParam(r, "courseID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, coursePayload(course))
}

func (s *Server) handleGetCourseByCode(w http.ResponseWriter, r *http.Request) {
	course, err := s.store.CourseByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, coursePayload(course))
}

func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	var req courseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Code = strings.TrimSpace(req.Code)
	if req.Code == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}
	if req.Credits < 1 {
		writeError(w, http.StatusBadRequest, "invalid_credits")
		return
	}
	if code, ok := s.validateProfessor(r, req.ProfessorID); !ok {
		writeError(w, http.StatusBadRequest, code)
		return
	}

	now := time.Now().UTC()
	course := model.Course{
		ID:           uuid.NewString(),
		Code:         req.Code,
		Name:         req.Name,
		Description:  req.Description,
		Credits:      req.Credits,
		MaxStudents:  req.MaxStudents,
		Semester:     req.Semester,
		AcademicYear: req.AcademicYear,
		Active:       true,
		ProfessorID:  req.ProfessorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.Active != nil {
		course.Active = *req.Active
	}
	if err := s.store.CreateCourse(r.Context(), course); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, coursePayload(course))
}

func (s *Server) handleUpdateCourse(w http.ResponseWriter, r *http.Request) {
	course, err := s.store.CourseByID(r.Context(), chi.URLParam(r, "courseID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var req courseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Code = strings.TrimSpace(req.Code)
	if req.Code == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}
	if req.Credits < 1 {
		writeError(w, http.StatusBadRequest, "invalid_credits")
		return
	}
	if code, ok := s.validateProfessor(r, req.ProfessorID); !ok {
		writeError(w, http.StatusBadRequest, code)
		return
	}

	course.Code = req.Code
	course.Name = req.Name
	course.Description = req.Description
	course.Credits = req.Credits
	course.MaxStudents = req.MaxStudents
	course.Semester = req.Semester
	course.AcademicYear = req.AcademicYear
	course.ProfessorID = req.ProfessorID
	if req.Active != nil {
		course.Active = *req.Active
	}
	course.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateCourse(r.Context(), course); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, coursePayload(course))
}

func (s *Server) handleDeactivateCourse(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeactivateCourse(r.Context(), chi.URLParam(r, "courseID")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

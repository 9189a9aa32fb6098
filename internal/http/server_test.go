package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/MatejStrlek/uni-course-management/internal/config"
	"github.com/MatejStrlek/uni-course-management/internal/crypto"
	"github.com/MatejStrlek/uni-course-management/internal/db"
	"github.com/MatejStrlek/uni-course-management/internal/enrollment"
	"github.com/MatejStrlek/uni-course-management/internal/grading"
	"github.com/MatejStrlek/uni-course-management/internal/metrics"
	"github.com/MatejStrlek/uni-course-management/internal/model"
	"github.com/MatejStrlek/uni-course-management/internal/notify"
	"github.com/MatejStrlek/uni-course-management/internal/repository"
	"github.com/MatejStrlek/uni-course-management/internal/session"
)

func testServer(t *testing.T) (*httptest.Server, *repository.Store, config.Config) {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("set TEST_DATABASE_URL to run")
	}
	pool, err := db.NewPool(context.Background(), url)
	if err != nil {
		t.Fatalf("pool error: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := db.RunMigrations(url); err != nil {
		t.Fatalf("migrate error: %v", err)
	}

	cfg := config.Config{
		JWTSecret:         "test-secret",
		JWTIssuer:         "test-issuer",
		AccessTokenTTL:    15 * time.Minute,
		RefreshTokenTTL:   24 * time.Hour,
		AuthRatePerMinute: 6000,
		AuthRateBurst:     1000,
	}

	store := repository.NewStore(pool)
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	sessions := session.NewManager(store, nil, collector, cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	ledger := enrollment.NewLedger(store)
	grades := grading.NewEngine(store, notify.NewGradeNotifier(notify.ConsoleMailer{}), collector)
	server := NewServer(cfg, store, sessions, ledger, grades, collector, reg)

	app := httptest.NewServer(server.Router())
	t.Cleanup(app.Close)
	return app, store, cfg
}

func seedUser(t *testing.T, store *repository.Store, role model.Role, password string) model.User {
	t.Helper()
	hash, err := crypto.HashPassword(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	now := time.Now().UTC()
	u := model.User{
		ID:           uuid.NewString(),
		Username:     "u-" + uuid.NewString(),
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     string(role),
		Email:        uuid.NewString() + "@example.edu",
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func seedCourse(t *testing.T, store *repository.Store) model.Course {
	t.Helper()
	now := time.Now().UTC()
	c := model.Course{
		ID:           uuid.NewString(),
		Code:         "C-" + uuid.NewString(),
		Name:         "Databases",
		Credits:      5,
		MaxStudents:  60,
		Semester:     "SUMMER",
		AcademicYear: "2025/2026",
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.CreateCourse(context.Background(), c); err != nil {
		t.Fatalf("create course: %v", err)
	}
	return c
}

func doReq(t *testing.T, method, url, token string, payload interface{}) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func login(t *testing.T, app *httptest.Server, username, password string) sessionResponse {
	t.Helper()
	resp := doReq(t, http.MethodPost, app.URL+"/auth/login", "", loginRequest{Username: username, Password: password})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", resp.StatusCode)
	}
	var sess sessionResponse
	decodeBody(t, resp, &sess)
	return sess
}

func TestLoginRefreshLogoutFlow(t *testing.T) {
	app, store, _ := testServer(t)
	user := seedUser(t, store, model.RoleStudent, "pa55word")

	sess := login(t, app, user.Username, "pa55word")
	if sess.User.ID != user.ID {
		t.Fatalf("unexpected user in session: %+v", sess.User)
	}

	resp := doReq(t, http.MethodGet, app.URL+"/auth/me", sess.AccessToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", resp.StatusCode)
	}

	resp = doReq(t, http.MethodPost, app.URL+"/auth/refresh", "", refreshRequest{RefreshToken: sess.RefreshToken})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d", resp.StatusCode)
	}
	var refreshed sessionResponse
	decodeBody(t, resp, &refreshed)
	if refreshed.RefreshToken != sess.RefreshToken {
		t.Fatal("refresh must hand back the same refresh token")
	}

	resp = doReq(t, http.MethodPost, app.URL+"/auth/logout", sess.AccessToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", resp.StatusCode)
	}

	resp = doReq(t, http.MethodPost, app.URL+"/auth/refresh", "", refreshRequest{RefreshToken: sess.RefreshToken})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: expected 401, got %d", resp.StatusCode)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	app, store, _ := testServer(t)
	user := seedUser(t, store, model.RoleStudent, "pa55word")

	resp := doReq(t, http.MethodPost, app.URL+"/auth/login", "", loginRequest{Username: user.Username, Password: "wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestAuthorizationLayers(t *testing.T) {
	app, store, _ := testServer(t)
	student := seedUser(t, store, model.RoleStudent, "pw")
	professor := seedUser(t, store, model.RoleProfessor, "pw")

	studentSess := login(t, app, student.Username, "pw")
	professorSess := login(t, app, professor.Username, "pw")

	// No token at all.
	resp := doReq(t, http.MethodGet, app.URL+"/api/users/", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", resp.StatusCode)
	}

	// Authenticated but not admin.
	resp = doReq(t, http.MethodGet, app.URL+"/api/users/", studentSess.AccessToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("student on admin route: expected 403, got %d", resp.StatusCode)
	}

	// Professor cannot enroll.
	course := seedCourse(t, store)
	resp = doReq(t, http.MethodPost, app.URL+"/api/enrollments/"+course.ID, professorSess.AccessToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("professor enrolling: expected 403, got %d", resp.StatusCode)
	}

	// Student cannot list course enrollments.
	resp = doReq(t, http.MethodGet, app.URL+"/api/courses/"+course.ID+"/enrollments", studentSess.AccessToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("student on roster: expected 403, got %d", resp.StatusCode)
	}
}

func TestEnrollmentLifecycleOverHTTP(t *testing.T) {
	app, store, _ := testServer(t)
	student := seedUser(t, store, model.RoleStudent, "pw")
	professor := seedUser(t, store, model.RoleProfessor, "pw")
	course := seedCourse(t, store)

	studentSess := login(t, app, student.Username, "pw")
	professorSess := login(t, app, professor.Username, "pw")

	// Enroll.
	resp := doReq(t, http.MethodPost, app.URL+"/api/enrollments/"+course.ID, studentSess.AccessToken, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("enroll: expected 201, got %d", resp.StatusCode)
	}
	var enrolled enrollmentResponse
	decodeBody(t, resp, &enrolled)
	if enrolled.Status != string(model.EnrollmentEnrolled) {
		t.Fatalf("expected ENROLLED, got %s", enrolled.Status)
	}

	// Enrolling again is rejected.
	resp = doReq(t, http.MethodPost, app.URL+"/api/enrollments/"+course.ID, studentSess.AccessToken, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("double enroll: expected 400, got %d", resp.StatusCode)
	}

	// Professor sees the student on the roster.
	resp = doReq(t, http.MethodGet, app.URL+"/api/courses/"+course.ID+"/enrollments", professorSess.AccessToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("roster: expected 200, got %d", resp.StatusCode)
	}
	var roster []enrollmentResponse
	decodeBody(t, resp, &roster)
	if len(roster) != 1 || roster[0].StudentID != student.ID {
		t.Fatalf("unexpected roster: %+v", roster)
	}

	// Professor grades the enrollment.
	resp = doReq(t, http.MethodPost, app.URL+"/api/enrollments/"+enrolled.ID+"/grade", professorSess.AccessToken, assignGradeRequest{Value: 4})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("grade: expected 201, got %d", resp.StatusCode)
	}

	// Out-of-range grade is rejected.
	resp = doReq(t, http.MethodPost, app.URL+"/api/enrollments/"+enrolled.ID+"/grade", professorSess.AccessToken, assignGradeRequest{Value: 6})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad grade: expected 400, got %d", resp.StatusCode)
	}

	// Student sees the graded enrollment with includeInactive.
	resp = doReq(t, http.MethodGet, app.URL+"/api/enrollments/?includeInactive=true", studentSess.AccessToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("my enrollments: expected 200, got %d", resp.StatusCode)
	}
	var mine []enrollmentResponse
	decodeBody(t, resp, &mine)
	if len(mine) != 1 || mine[0].Status != string(model.EnrollmentCompleted) {
		t.Fatalf("expected one COMPLETED enrollment, got %+v", mine)
	}
	if mine[0].Grade == nil || mine[0].Grade.Value != 4 {
		t.Fatalf("expected grade 4 attached, got %+v", mine[0].Grade)
	}

	// Completed enrollment cannot be dropped.
	resp = doReq(t, http.MethodDelete, app.URL+"/api/enrollments/"+course.ID, studentSess.AccessToken, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("drop completed: expected 400, got %d", resp.StatusCode)
	}

	// Re-enrolling reuses the record.
	resp = doReq(t, http.MethodPost, app.URL+"/api/enrollments/"+course.ID, studentSess.AccessToken, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("re-enroll: expected 201, got %d", resp.StatusCode)
	}
	var reused enrollmentResponse
	decodeBody(t, resp, &reused)
	if reused.ID != enrolled.ID {
		t.Fatalf("expected reused record %s, got %s", enrolled.ID, reused.ID)
	}
}

func TestEnrollInactiveCourseOverHTTP(t *testing.T) {
	app, store, _ := testServer(t)
	student := seedUser(t, store, model.RoleStudent, "pw")
	course := seedCourse(t, store)
	if err := store.DeactivateCourse(context.Background(), course.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	sess := login(t, app, student.Username, "pw")
	resp := doReq(t, http.MethodPost, app.URL+"/api/enrollments/"+course.ID, sess.AccessToken, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestAdminUserManagement(t *testing.T) {
	app, store, _ := testServer(t)
	admin := seedUser(t, store, model.RoleAdmin, "pw")
	sess := login(t, app, admin.Username, "pw")

	username := "u-" + uuid.NewString()
	resp := doReq(t, http.MethodPost, app.URL+"/api/users/", sess.AccessToken, createUserRequest{
		Username:  username,
		Password:  "secret",
		FirstName: "New",
		LastName:  "Professor",
		Email:     fmt.Sprintf("%s@example.edu", username),
		Role:      "PROFESSOR",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create user: expected 201, got %d", resp.StatusCode)
	}
	var created userSummary
	decodeBody(t, resp, &created)

	// Duplicate username conflicts.
	resp = doReq(t, http.MethodPost, app.URL+"/api/users/", sess.AccessToken, createUserRequest{
		Username: username,
		Password: "secret",
		Email:    "other@example.edu",
		Role:     "STUDENT",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate username: expected 409, got %d", resp.StatusCode)
	}

	resp = doReq(t, http.MethodDelete, app.URL+"/api/users/"+created.ID, sess.AccessToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("deactivate: expected 200, got %d", resp.StatusCode)
	}
	deactivated, err := store.UserByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("user by id: %v", err)
	}
	if deactivated.Active {
		t.Fatal("expected user to be inactive")
	}
}

func TestCourseLookupAndStudentTranscript(t *testing.T) {
	app, store, _ := testServer(t)
	student := seedUser(t, store, model.RoleStudent, "pw")
	professor := seedUser(t, store, model.RoleProfessor, "pw")

	now := time.Now().UTC()
	course := model.Course{
		ID:           uuid.NewString(),
		Code:         "C-" + uuid.NewString(),
		Name:         "Operating Systems",
		Credits:      6,
		MaxStudents:  40,
		Semester:     "WINTER",
		AcademicYear: "2025/2026",
		Active:       true,
		ProfessorID:  &professor.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.CreateCourse(context.Background(), course); err != nil {
		t.Fatalf("create course: %v", err)
	}

	studentSess := login(t, app, student.Username, "pw")
	professorSess := login(t, app, professor.Username, "pw")

	// Lookup by code.
	resp := doReq(t, http.MethodGet, app.URL+"/api/courses/code/"+course.Code, studentSess.AccessToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("lookup by code: expected 200, got %d", resp.StatusCode)
	}
	var found courseResponse
	decodeBody(t, resp, &found)
	if found.ID != course.ID {
		t.Fatalf("expected course %s, got %s", course.ID, found.ID)
	}

	resp = doReq(t, http.MethodGet, app.URL+"/api/courses/code/NO-SUCH-CODE", studentSess.AccessToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown code: expected 404, got %d", resp.StatusCode)
	}

	// Filter the listing to the professor's courses.
	resp = doReq(t, http.MethodGet, app.URL+"/api/courses/?professorId="+professor.ID, professorSess.AccessToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("professor filter: expected 200, got %d", resp.StatusCode)
	}
	var taught []courseResponse
	decodeBody(t, resp, &taught)
	if len(taught) != 1 || taught[0].ID != course.ID {
		t.Fatalf("expected only the professor's course, got %+v", taught)
	}

	// Enroll and grade, then read the transcript.
	resp = doReq(t, http.MethodPost, app.URL+"/api/enrollments/"+course.ID, studentSess.AccessToken, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("enroll: expected 201, got %d", resp.StatusCode)
	}
	var enrolled enrollmentResponse
	decodeBody(t, resp, &enrolled)

	resp = doReq(t, http.MethodPost, app.URL+"/api/enrollments/"+enrolled.ID+"/grade", professorSess.AccessToken, assignGradeRequest{Value: 4})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("assign grade: expected 201, got %d", resp.StatusCode)
	}

	resp = doReq(t, http.MethodGet, app.URL+"/api/students/"+student.ID+"/grades", professorSess.AccessToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("transcript: expected 200, got %d", resp.StatusCode)
	}
	var transcript []gradeResponse
	decodeBody(t, resp, &transcript)
	if len(transcript) != 1 || transcript[0].Value != 4 {
		t.Fatalf("expected one grade of 4, got %+v", transcript)
	}

	// Students cannot read transcripts.
	resp = doReq(t, http.MethodGet, app.URL+"/api/students/"+student.ID+"/grades", studentSess.AccessToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("student transcript access: expected 403, got %d", resp.StatusCode)
	}
}

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"example.com/tracker/internal/domain"
)

func newTestMux(repo domain.Repository) *http.ServeMux {
	service := domain.NewService(repo, nil)
	handler := NewHandler(service, zap.NewNop().Sugar())
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	return mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
}

func TestCreateUserReturnsGeneratedID(t *testing.T) {
	mux := newTestMux(&mockRepo{})

	rr := doJSON(t, mux, http.MethodPost, "/api/users", `{"username":"fcc_test"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp UserView
	decodeBody(t, rr, &resp)
	if resp.Username != "fcc_test" {
		t.Fatalf("expected username fcc_test got %q", resp.Username)
	}
	if resp.ID == "" {
		t.Fatalf("expected generated id")
	}
}

func TestCreateUserAcceptsFormBody(t *testing.T) {
	mux := newTestMux(&mockRepo{})

	form := url.Values{"username": {"form_user"}}
	req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	var resp UserView
	decodeBody(t, rr, &resp)
	if resp.Username != "form_user" {
		t.Fatalf("expected username form_user got %q", resp.Username)
	}
}

func TestCreateUserRejectsEmptyUsername(t *testing.T) {
	mux := newTestMux(&mockRepo{})

	rr := doJSON(t, mux, http.MethodPost, "/api/users", `{"username":"   "}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
	var resp map[string]string
	decodeBody(t, rr, &resp)
	if resp["error"] == "" {
		t.Fatalf("expected error body, got %s", rr.Body.String())
	}
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	repo := &mockRepo{users: []domain.User{{ID: "user-1", Username: "fcc_test"}}}
	mux := newTestMux(repo)

	rr := doJSON(t, mux, http.MethodPost, "/api/users", `{"username":"fcc_test"}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d: %s", rr.Code, rr.Body.String())
	}
	if len(repo.users) != 1 {
		t.Fatalf("expected no second user persisted, got %d", len(repo.users))
	}
}

func TestListUsersProjectsUsernameAndID(t *testing.T) {
	repo := &mockRepo{users: []domain.User{
		{ID: "user-1", Username: "alice"},
		{ID: "user-2", Username: "bob"},
	}}
	mux := newTestMux(repo)

	rr := doJSON(t, mux, http.MethodGet, "/api/users", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}

	var resp []UserView
	decodeBody(t, rr, &resp)
	if len(resp) != 2 {
		t.Fatalf("expected 2 users got %d", len(resp))
	}
	if resp[0].Username != "alice" || resp[0].ID != "user-1" {
		t.Fatalf("unexpected first user %+v", resp[0])
	}
}

func TestListUsersEmptyIsArray(t *testing.T) {
	mux := newTestMux(&mockRepo{})

	rr := doJSON(t, mux, http.MethodGet, "/api/users", "")
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("expected empty array, got %s", rr.Body.String())
	}
}

func TestAddExerciseFormatsDate(t *testing.T) {
	repo := &mockRepo{users: []domain.User{{ID: "user-1", Username: "fcc_test"}}}
	mux := newTestMux(repo)

	rr := doJSON(t, mux, http.MethodPost, "/api/users/user-1/exercises",
		`{"description":"test run","duration":"30","date":"2023-01-15"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp ExerciseView
	decodeBody(t, rr, &resp)
	if resp.ID != "user-1" || resp.Username != "fcc_test" {
		t.Fatalf("expected owning user echoed, got %+v", resp)
	}
	if resp.Description != "test run" || resp.Duration != 30 {
		t.Fatalf("unexpected exercise fields %+v", resp)
	}
	if resp.Date != "Sun Jan 15 2023" {
		t.Fatalf("expected date \"Sun Jan 15 2023\" got %q", resp.Date)
	}
}

func TestAddExerciseAcceptsNumericDuration(t *testing.T) {
	repo := &mockRepo{users: []domain.User{{ID: "user-1", Username: "fcc_test"}}}
	mux := newTestMux(repo)

	rr := doJSON(t, mux, http.MethodPost, "/api/users/user-1/exercises",
		`{"description":"test run","duration":30,"date":"2023-01-15"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestAddExerciseDefaultsDateToToday(t *testing.T) {
	repo := &mockRepo{users: []domain.User{{ID: "user-1", Username: "fcc_test"}}}
	mux := newTestMux(repo)

	rr := doJSON(t, mux, http.MethodPost, "/api/users/user-1/exercises",
		`{"description":"test run","duration":"30"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp ExerciseView
	decodeBody(t, rr, &resp)
	today := time.Now().UTC().Format(dateLayout)
	if resp.Date != today {
		t.Fatalf("expected today %q got %q", today, resp.Date)
	}
}

func TestAddExerciseMalformedDateFallsBackToToday(t *testing.T) {
	repo := &mockRepo{users: []domain.User{{ID: "user-1", Username: "fcc_test"}}}
	mux := newTestMux(repo)

	rr := doJSON(t, mux, http.MethodPost, "/api/users/user-1/exercises",
		`{"description":"test run","duration":"30","date":"not-a-date"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp ExerciseView
	decodeBody(t, rr, &resp)
	if resp.Date != time.Now().UTC().Format(dateLayout) {
		t.Fatalf("expected fallback to today, got %q", resp.Date)
	}
}

func TestAddExerciseUnknownUser(t *testing.T) {
	repo := &mockRepo{}
	mux := newTestMux(repo)

	rr := doJSON(t, mux, http.MethodPost, "/api/users/missing/exercises",
		`{"description":"test run","duration":"30"}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d: %s", rr.Code, rr.Body.String())
	}
	if len(repo.exercises) != 0 {
		t.Fatalf("expected no exercise persisted, got %d", len(repo.exercises))
	}
}

func TestAddExerciseRejectsInvalidDuration(t *testing.T) {
	repo := &mockRepo{users: []domain.User{{ID: "user-1", Username: "fcc_test"}}}
	mux := newTestMux(repo)

	for _, duration := range []string{`"abc"`, `"0"`, `"-5"`} {
		rr := doJSON(t, mux, http.MethodPost, "/api/users/user-1/exercises",
			`{"description":"test run","duration":`+duration+`}`)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("duration %s: expected 400 got %d", duration, rr.Code)
		}
	}
	if len(repo.exercises) != 0 {
		t.Fatalf("expected no exercise persisted, got %d", len(repo.exercises))
	}
}

func TestGetLogsFiltersAndLimits(t *testing.T) {
	repo := &mockRepo{users: []domain.User{{ID: "user-1", Username: "runner"}}}
	mux := newTestMux(repo)
	seedExercises(repo, "user-1",
		"2023-01-10", "2023-01-15", "2023-01-20", "2023-02-01")

	rr := doJSON(t, mux, http.MethodGet, "/api/users/user-1/logs?from=2023-01-15&to=2023-01-20", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp LogResponse
	decodeBody(t, rr, &resp)
	if resp.Count != 2 || len(resp.Log) != 2 {
		t.Fatalf("expected inclusive range of 2 entries, got count=%d len=%d", resp.Count, len(resp.Log))
	}
	if resp.Log[0].Date != "Sun Jan 15 2023" || resp.Log[1].Date != "Fri Jan 20 2023" {
		t.Fatalf("expected ascending dates, got %+v", resp.Log)
	}

	rr = doJSON(t, mux, http.MethodGet, "/api/users/user-1/logs?limit=3", "")
	decodeBody(t, rr, &resp)
	if resp.Count != 3 || len(resp.Log) != 3 {
		t.Fatalf("expected post-limit count of 3, got count=%d len=%d", resp.Count, len(resp.Log))
	}

	// A limit larger than the matching set returns everything.
	rr = doJSON(t, mux, http.MethodGet, "/api/users/user-1/logs?limit=99", "")
	decodeBody(t, rr, &resp)
	if resp.Count != 4 {
		t.Fatalf("expected count 4, got %d", resp.Count)
	}
}

func TestGetLogsIgnoresMalformedBounds(t *testing.T) {
	repo := &mockRepo{users: []domain.User{{ID: "user-1", Username: "runner"}}}
	mux := newTestMux(repo)
	seedExercises(repo, "user-1", "2023-01-10", "2023-01-15")

	rr := doJSON(t, mux, http.MethodGet, "/api/users/user-1/logs?from=garbage&to=also-garbage&limit=zero", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp LogResponse
	decodeBody(t, rr, &resp)
	if resp.Count != 2 {
		t.Fatalf("expected malformed bounds dropped, got count %d", resp.Count)
	}
}

func TestGetLogsUnknownUser(t *testing.T) {
	mux := newTestMux(&mockRepo{})

	rr := doJSON(t, mux, http.MethodGet, "/api/users/missing/logs", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rr.Code)
	}
}

func TestCreateAddFetchRoundTrip(t *testing.T) {
	repo := &mockRepo{}
	mux := newTestMux(repo)

	rr := doJSON(t, mux, http.MethodPost, "/api/users", `{"username":"fcc_test"}`)
	var user UserView
	decodeBody(t, rr, &user)

	rr = doJSON(t, mux, http.MethodPost, "/api/users/"+user.ID+"/exercises",
		`{"description":"test run","duration":"30","date":"2023-01-15"}`)
	var created ExerciseView
	decodeBody(t, rr, &created)

	rr = doJSON(t, mux, http.MethodGet, "/api/users/"+user.ID+"/logs", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var logResp LogResponse
	decodeBody(t, rr, &logResp)
	if logResp.Username != "fcc_test" || logResp.ID != user.ID {
		t.Fatalf("unexpected log owner %+v", logResp)
	}
	if logResp.Count != 1 || len(logResp.Log) != 1 {
		t.Fatalf("expected single log entry, got %+v", logResp)
	}
	entry := logResp.Log[0]
	if entry.Description != created.Description || entry.Duration != created.Duration || entry.Date != created.Date {
		t.Fatalf("log entry %+v does not match add response %+v", entry, created)
	}
}

func seedExercises(repo *mockRepo, userID string, days ...string) {
	for i, day := range days {
		date, err := time.Parse("2006-01-02", day)
		if err != nil {
			panic(err)
		}
		repo.exercises = append(repo.exercises, domain.Exercise{
			ID:          "ex-" + day,
			UserID:      userID,
			Description: "run",
			Duration:    30,
			Date:        date.UTC(),
			CreatedAt:   time.Now().UTC().Add(time.Duration(i) * time.Second),
		})
	}
}

type mockRepo struct {
	users     []domain.User
	exercises []domain.Exercise
}

func (m *mockRepo) CreateUser(ctx context.Context, user domain.User) error {
	for _, existing := range m.users {
		if existing.Username == user.Username {
			return domain.ErrUsernameTaken
		}
	}
	m.users = append(m.users, user)
	return nil
}

func (m *mockRepo) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	for _, user := range m.users {
		if user.ID == userID {
			u := user
			return &u, nil
		}
	}
	return nil, nil
}

func (m *mockRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	return m.users, nil
}

func (m *mockRepo) CreateExercise(ctx context.Context, exercise domain.Exercise) error {
	m.exercises = append(m.exercises, exercise)
	return nil
}

func (m *mockRepo) ListExercises(ctx context.Context, userID string, filter domain.LogFilter) ([]domain.Exercise, error) {
	var out []domain.Exercise
	for _, ex := range m.exercises {
		if ex.UserID != userID {
			continue
		}
		if filter.From != nil && ex.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && ex.Date.After(*filter.To) {
			continue
		}
		out = append(out, ex)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

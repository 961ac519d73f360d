package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"tuitionhub/internal/platform/middleware"
	"tuitionhub/internal/transport/http/shared"
	"tuitionhub/internal/tuition/models"
	"tuitionhub/internal/tuition/service"
	"tuitionhub/internal/tuition/store"
)

type stubVerifier struct{}

func (stubVerifier) Verify(_ context.Context, token string) (middleware.VerifiedIdentity, error) {
	email, ok := strings.CutPrefix(token, "token-for:")
	if !ok {
		return middleware.VerifiedIdentity{}, errors.New("unknown token")
	}
	return middleware.VerifiedIdentity{Email: email}, nil
}

type staticRoles map[string]string

func (r staticRoles) ResolveRole(_ context.Context, email string) (string, error) {
	if role, ok := r[email]; ok {
		return role, nil
	}
	return "student", nil
}

type TuitionHandlerSuite struct {
	suite.Suite
	router chi.Router
}

func TestTuitionHandlerSuite(t *testing.T) {
	suite.Run(t, new(TuitionHandlerSuite))
}

func (s *TuitionHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(store.NewInMemory(), staticRoles{"admin@example.com": "admin"}, nil, logger)
	h := New(svc, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Group(h.RegisterPublic)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(stubVerifier{}, logger))
		h.RegisterAuthed(r)
	})
	s.router = r
}

func (s *TuitionHandlerSuite) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *TuitionHandlerSuite) createTuition(owner, title string, salary int64) models.Tuition {
	body, err := json.Marshal(map[string]any{"title": title, "subject": "Math", "location": "Dhaka", "salary": salary})
	s.Require().NoError(err)

	rec := s.do(http.MethodPost, "/tuitions", "token-for:"+owner, string(body))
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var tuition models.Tuition
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &tuition))
	return tuition
}

func (s *TuitionHandlerSuite) TestCreateRequiresToken() {
	rec := s.do(http.MethodPost, "/tuitions", "", `{"title":"T","subject":"Math"}`)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *TuitionHandlerSuite) TestListIsPublicWithFilters() {
	s.createTuition("a@example.com", "Algebra evenings", 5000)
	s.createTuition("b@example.com", "English mornings", 4000)

	rec := s.do(http.MethodGet, "/tuitions?search=algebra", "", "")
	s.Require().Equal(http.StatusOK, rec.Code)

	var tuitions []models.Tuition
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &tuitions))
	s.Require().Len(tuitions, 1)
	s.Equal("Algebra evenings", tuitions[0].Title)
}

func (s *TuitionHandlerSuite) TestListSortBySalary() {
	s.createTuition("a@example.com", "Cheap", 1000)
	s.createTuition("a@example.com", "Pricey", 9000)

	rec := s.do(http.MethodGet, "/tuitions?sortBy=salary&order=asc", "", "")
	s.Require().Equal(http.StatusOK, rec.Code)

	var tuitions []models.Tuition
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &tuitions))
	s.Require().Len(tuitions, 2)
	s.Equal("Cheap", tuitions[0].Title)
}

func (s *TuitionHandlerSuite) TestListRejectsUnknownSort() {
	rec := s.do(http.MethodGet, "/tuitions?sortBy=relevance", "", "")
	s.Equal(http.StatusBadRequest, rec.Code)

	var resp shared.ErrorResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("bad_request", resp.Error)
}

func (s *TuitionHandlerSuite) TestDetailAndNotFound() {
	tuition := s.createTuition("a@example.com", "Algebra", 5000)

	rec := s.do(http.MethodGet, "/tuitions/"+tuition.ID.String(), "", "")
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/tuitions/00000000-0000-0000-0000-000000000000", "", "")
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/tuitions/not-a-uuid", "", "")
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *TuitionHandlerSuite) TestPatchOwnerOnly() {
	tuition := s.createTuition("owner@example.com", "Algebra", 5000)

	rec := s.do(http.MethodPatch, "/tuitions/"+tuition.ID.String(), "token-for:intruder@example.com", `{"salary":1}`)
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPatch, "/tuitions/"+tuition.ID.String(), "token-for:owner@example.com", `{"salary":6000}`)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"salary":6000`)
}

func (s *TuitionHandlerSuite) TestDelete() {
	tuition := s.createTuition("owner@example.com", "Algebra", 5000)

	rec := s.do(http.MethodDelete, "/tuitions/"+tuition.ID.String(), "token-for:owner@example.com", "")
	s.Equal(http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodDelete, "/tuitions/"+tuition.ID.String(), "token-for:owner@example.com", "")
	s.Equal(http.StatusNotFound, rec.Code)
}

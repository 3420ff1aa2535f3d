package handler_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/jadpai-enrollment/internal/apperror"
	"github.com/iliyamo/jadpai-enrollment/internal/model"
	"github.com/iliyamo/jadpai-enrollment/internal/testutil"
)

func TestListUsers_AdminOnly(t *testing.T) {
	s := newTestServer(t)
	digest := "$2a$04$abcdefghijklmnopqrstuvwx"
	_, userToken := s.seedUser(t, model.User{Name: "Ana", Email: "a@x.com", PasswordHash: &digest})
	_, adminToken := s.seedAdmin(t)

	rec := testutil.SendRequest(t, s.e, http.MethodGet, "/users", nil, testutil.WithBearer(userToken))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = testutil.SendRequest(t, s.e, http.MethodGet, "/users", nil, testutil.WithBearer(adminToken))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, testutil.ParseResponse[[]model.User](t, rec), 2)
	assert.NotContains(t, rec.Body.String(), digest)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestGetUser(t *testing.T) {
	s := newTestServer(t)
	ana, anaToken := s.seedUser(t, model.User{Name: "Ana", Email: "a@x.com"})
	bo, _ := s.seedUser(t, model.User{Name: "Bo", Email: "b@x.com"})
	_, adminToken := s.seedAdmin(t)

	rec := testutil.SendRequest(t, s.e, http.MethodGet, fmt.Sprintf("/users/%d", ana.ID), nil, testutil.WithBearer(anaToken))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = testutil.SendRequest(t, s.e, http.MethodGet, fmt.Sprintf("/users/%d", bo.ID), nil, testutil.WithBearer(anaToken))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = testutil.SendRequest(t, s.e, http.MethodGet, "/users/999", nil, testutil.WithBearer(adminToken))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", testutil.ParseResponse[apperror.ErrorResponse](t, rec).Code)

	rec = testutil.SendRequest(t, s.e, http.MethodGet, "/users/abc", nil, testutil.WithBearer(adminToken))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateUser(t *testing.T) {
	s := newTestServer(t)
	ana, anaToken := s.seedUser(t, model.User{Name: "Ana", Surname: "Lopez", Email: "a@x.com"})
	bo, boToken := s.seedUser(t, model.User{Name: "Bo", Email: "b@x.com"})
	path := fmt.Sprintf("/users/%d", ana.ID)

	rec := testutil.SendRequest(t, s.e, http.MethodPut, path, map[string]string{"name": "Mallory"}, testutil.WithBearer(boToken))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = testutil.SendRequest(t, s.e, http.MethodPut, path, map[string]string{}, testutil.WithBearer(anaToken))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = testutil.SendRequest(t, s.e, http.MethodPut, path, map[string]string{"email": bo.Email}, testutil.WithBearer(anaToken))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = testutil.SendRequest(t, s.e, http.MethodPut, path, map[string]string{"name": "Anna", "password": "n3w-pass"}, testutil.WithBearer(anaToken))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "n3w-pass")

	rec = testutil.SendRequest(t, s.e, http.MethodPost, "/users/auth", map[string]string{"email": "a@x.com", "password": "n3w-pass"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteUser(t *testing.T) {
	s := newTestServer(t)
	ana, anaToken := s.seedUser(t, model.User{Name: "Ana", Email: "a@x.com"})
	_, adminToken := s.seedAdmin(t)
	path := fmt.Sprintf("/users/%d", ana.ID)

	rec := testutil.SendRequest(t, s.e, http.MethodDelete, path, nil, testutil.WithBearer(anaToken))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = testutil.SendRequest(t, s.e, http.MethodDelete, path, nil, testutil.WithBearer(adminToken))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = testutil.SendRequest(t, s.e, http.MethodDelete, path, nil, testutil.WithBearer(adminToken))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

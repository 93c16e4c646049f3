package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/lexora-ai/lexora/internal/domain"
)

type MockUserLookup struct {
	mock.Mock
}

func (m *MockUserLookup) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func runUserAuth(t *testing.T, lookup UserLookup, header string) (*httptest.ResponseRecorder, int64) {
	t.Helper()

	var seenUserID int64
	handler := UserAuth(lookup)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUserID = GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	if header != "" {
		req.Header.Set("X-User-ID", header)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w, seenUserID
}

func TestUserAuth_MissingHeader(t *testing.T) {
	w, _ := runUserAuth(t, new(MockUserLookup), "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "missing X-User-ID")
}

func TestUserAuth_NonNumericHeader(t *testing.T) {
	w, _ := runUserAuth(t, new(MockUserLookup), "ana")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid X-User-ID")
}

func TestUserAuth_NonPositiveID(t *testing.T) {
	w, _ := runUserAuth(t, new(MockUserLookup), "0")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserAuth_UnknownUser(t *testing.T) {
	lookup := new(MockUserLookup)
	lookup.On("GetByID", mock.Anything, int64(99)).Return(nil, domain.ErrUserNotFound)

	w, _ := runUserAuth(t, lookup, "99")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "unknown user")
}

func TestUserAuth_ValidUser(t *testing.T) {
	lookup := new(MockUserLookup)
	lookup.On("GetByID", mock.Anything, int64(42)).Return(&domain.User{ID: 42, Username: "ana", Role: domain.RoleMember}, nil)

	w, seenUserID := runUserAuth(t, lookup, "42")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(42), seenUserID)
	lookup.AssertExpectations(t)
}

func TestGetUserID_AbsentContext(t *testing.T) {
	assert.Equal(t, int64(0), GetUserID(context.Background()))
}

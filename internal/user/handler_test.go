package user

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"gorm.io/gorm"

	"devlink/internal/common"
	"devlink/internal/dbmysql"
)

func newHandlerTestRouter(t *testing.T) (*mux.Router, *MockUserRepository, *MockConnectionRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	userRepo := NewMockUserRepository(ctrl)
	connRepo := NewMockConnectionRepository(ctrl)
	h := NewHandler(NewUserService(userRepo, connRepo))
	router := mux.NewRouter()
	h.Routes(router)
	return router, userRepo, connRepo
}

func TestHandler_AuthRoundTrip(t *testing.T) {
	router, userRepo, connRepo := newHandlerTestRouter(t)

	var storedHash string
	userRepo.EXPECT().CheckUserExists(gomock.Any(), "alice").Return(false, nil)
	userRepo.EXPECT().CreateUser(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, u *dbmysql.User) error {
			u.UserID = 1
			storedHash = u.PasswordHash
			return nil
		})

	body, _ := json.Marshal(credentialsRequest{Handle: "alice", Email: "alice@example.com", Password: "Password123"})
	req := httptest.NewRequest("POST", "/api/auth/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var registered authResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &registered))
	require.NotEmpty(t, registered.Token)
	require.Equal(t, uint64(1), registered.UserID)

	// The token from register authenticates the connections listing.
	userRepo.EXPECT().GetUserByHandle(gomock.Any(), "alice").Return(
		&dbmysql.User{UserID: 1, Handle: "alice", PasswordHash: storedHash, Status: "active"}, nil)

	body, _ = json.Marshal(credentialsRequest{Handle: "alice", Password: "Password123"})
	req = httptest.NewRequest("POST", "/api/auth/login", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var loggedIn authResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loggedIn))

	connRepo.EXPECT().ListActiveConnections(gomock.Any(), uint64(1)).Return(
		[]ConnectionInfo{{ConnectionID: "c-1", Handle: "bob", DisplayName: "Bob"}}, nil)

	req = httptest.NewRequest("GET", "/api/connections", nil)
	req.Header.Set("Authorization", "Bearer "+loggedIn.Token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Connections []ConnectionInfo `json:"connections"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.Len(t, listing.Connections, 1)
	require.Equal(t, "c-1", listing.Connections[0].ConnectionID)
}

func TestHandler_LoginRejectsBadPassword(t *testing.T) {
	router, userRepo, _ := newHandlerTestRouter(t)

	hashed, err := common.HashPassword("Password123")
	require.NoError(t, err)
	userRepo.EXPECT().GetUserByHandle(gomock.Any(), "alice").Return(
		&dbmysql.User{UserID: 1, Handle: "alice", PasswordHash: hashed, Status: "active"}, nil)

	body, _ := json.Marshal(credentialsRequest{Handle: "alice", Password: "WrongPass99"})
	req := httptest.NewRequest("POST", "/api/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_ConnectionsRequireAuth(t *testing.T) {
	router, _, _ := newHandlerTestRouter(t)

	req := httptest.NewRequest("GET", "/api/connections", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_SendConnectionRequest(t *testing.T) {
	router, userRepo, connRepo := newHandlerTestRouter(t)

	token, err := common.GenerateToken(1, "alice")
	require.NoError(t, err)

	userRepo.EXPECT().GetUserByID(gomock.Any(), uint64(2)).Return(&dbmysql.User{UserID: 2}, nil)
	connRepo.EXPECT().GetConnectionBetween(gomock.Any(), uint64(1), uint64(2)).Return(nil, gorm.ErrRecordNotFound)
	connRepo.EXPECT().CreateConnection(gomock.Any(), gomock.Any()).Return(nil)

	req := httptest.NewRequest("POST", "/api/connections/2", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestHandler_SendConnectionRequest_UnknownTarget(t *testing.T) {
	router, userRepo, _ := newHandlerTestRouter(t)

	token, err := common.GenerateToken(1, "alice")
	require.NoError(t, err)

	userRepo.EXPECT().GetUserByID(gomock.Any(), uint64(99)).Return(nil, gorm.ErrRecordNotFound)

	req := httptest.NewRequest("POST", "/api/connections/99", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

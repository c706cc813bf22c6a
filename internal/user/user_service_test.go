package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"gorm.io/gorm"

	"devlink/internal/common"
	"devlink/internal/dbmysql"
)

func TestUserService_RegisterUser(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockUserRepo := NewMockUserRepository(ctrl)
	mockConnRepo := NewMockConnectionRepository(ctrl)
	svc := NewUserService(mockUserRepo, mockConnRepo)
	ctx := context.Background()

	tests := []struct {
		name        string
		handle      string
		email       string
		password    string
		setup       func()
		wantErr     bool
		errContains string
	}{
		{
			name:     "success",
			handle:   "alice",
			email:    "alice@example.com",
			password: "Password123",
			setup: func() {
				mockUserRepo.EXPECT().CheckUserExists(ctx, "alice").Return(false, nil)
				mockUserRepo.EXPECT().CreateUser(ctx, gomock.Any()).DoAndReturn(
					func(_ context.Context, u *dbmysql.User) error {
						u.UserID = 1
						return nil
					})
			},
		},
		{
			name:     "duplicate handle",
			handle:   "bob",
			email:    "bob@example.com",
			password: "Password123",
			setup: func() {
				mockUserRepo.EXPECT().CheckUserExists(ctx, "bob").Return(true, nil)
			},
			wantErr:     true,
			errContains: "exists",
		},
		{
			name:        "invalid handle",
			handle:      "!",
			email:       "x@y.com",
			password:    "Password123",
			setup:       func() {},
			wantErr:     true,
			errContains: "handle",
		},
		{
			name:        "invalid email",
			handle:      "alicegood",
			email:       "bademail",
			password:    "Password123",
			setup:       func() {},
			wantErr:     true,
			errContains: "email",
		},
		{
			name:        "invalid password",
			handle:      "alicia",
			email:       "alic@g.com",
			password:    "short",
			setup:       func() {},
			wantErr:     true,
			errContains: "password",
		},
		{
			name:     "repo failure on exist check",
			handle:   "alicefail",
			email:    "alice@fail.com",
			password: "Password123",
			setup: func() {
				mockUserRepo.EXPECT().CheckUserExists(ctx, "alicefail").Return(false, errors.New("db is down"))
			},
			wantErr:     true,
			errContains: "db is down",
		},
		{
			name:     "repo failure on create",
			handle:   "alicefail2",
			email:    "alice2@fail.com",
			password: "Password123",
			setup: func() {
				mockUserRepo.EXPECT().CheckUserExists(ctx, "alicefail2").Return(false, nil)
				mockUserRepo.EXPECT().CreateUser(ctx, gomock.Any()).Return(errors.New("create fail"))
			},
			wantErr:     true,
			errContains: "create fail",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.setup()
			user, token, err := svc.RegisterUser(ctx, tc.handle, tc.email, tc.password)
			if tc.wantErr {
				require.Error(t, err)
				if tc.errContains != "" {
					require.Contains(t, err.Error(), tc.errContains)
				}
				return
			}
			require.NoError(t, err)
			require.NotNil(t, user)
			require.NotEmpty(t, token)
			require.Equal(t, tc.handle, user.Handle)
			require.Equal(t, "active", user.Status)
			require.NoError(t, common.CheckPassword(tc.password, user.PasswordHash))
		})
	}
}

func TestUserService_LoginUser(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockUserRepo := NewMockUserRepository(ctrl)
	mockConnRepo := NewMockConnectionRepository(ctrl)
	svc := NewUserService(mockUserRepo, mockConnRepo)
	ctx := context.Background()

	hashed, err := common.HashPassword("Password123")
	require.NoError(t, err)

	active := &dbmysql.User{UserID: 7, Handle: "alice", PasswordHash: hashed, Status: "active"}

	t.Run("success", func(t *testing.T) {
		mockUserRepo.EXPECT().GetUserByHandle(ctx, "alice").Return(active, nil)
		user, token, err := svc.LoginUser(ctx, "alice", "Password123")
		require.NoError(t, err)
		require.Equal(t, uint64(7), user.UserID)
		require.NotEmpty(t, token)

		claims, err := common.ValidToken(token)
		require.NoError(t, err)
		require.Equal(t, uint64(7), claims.UserID)
		require.Equal(t, "alice", claims.Handle)
	})

	t.Run("wrong password", func(t *testing.T) {
		mockUserRepo.EXPECT().GetUserByHandle(ctx, "alice").Return(active, nil)
		_, _, err := svc.LoginUser(ctx, "alice", "Wrong12345")
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid password")
	})

	t.Run("unknown handle", func(t *testing.T) {
		mockUserRepo.EXPECT().GetUserByHandle(ctx, "ghost").Return(nil, gorm.ErrRecordNotFound)
		_, _, err := svc.LoginUser(ctx, "ghost", "Password123")
		require.Error(t, err)
	})

	t.Run("missing credentials", func(t *testing.T) {
		_, _, err := svc.LoginUser(ctx, "", "")
		require.Error(t, err)
	})

	t.Run("inactive user", func(t *testing.T) {
		suspended := &dbmysql.User{UserID: 8, Handle: "carol", PasswordHash: hashed, Status: "suspended"}
		mockUserRepo.EXPECT().GetUserByHandle(ctx, "carol").Return(suspended, nil)
		_, _, err := svc.LoginUser(ctx, "carol", "Password123")
		require.Error(t, err)
		require.Contains(t, err.Error(), "not active")
	})
}

func TestUserService_SendConnectionRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockUserRepo := NewMockUserRepository(ctrl)
	mockConnRepo := NewMockConnectionRepository(ctrl)
	svc := NewUserService(mockUserRepo, mockConnRepo)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mockUserRepo.EXPECT().GetUserByID(ctx, uint64(2)).Return(&dbmysql.User{UserID: 2, Handle: "bob"}, nil)
		mockConnRepo.EXPECT().GetConnectionBetween(ctx, uint64(1), uint64(2)).Return(nil, gorm.ErrRecordNotFound)
		mockConnRepo.EXPECT().CreateConnection(ctx, gomock.Any()).DoAndReturn(
			func(_ context.Context, c *dbmysql.Connection) error {
				require.NotEmpty(t, c.ID)
				require.Equal(t, uint64(1), c.UserID)
				require.Equal(t, uint64(2), c.ConnectedUserID)
				require.Equal(t, "pending", c.Status)
				return nil
			})

		conn, err := svc.SendConnectionRequest(ctx, 1, 2)
		require.NoError(t, err)
		require.NotNil(t, conn)
	})

	t.Run("self connection rejected", func(t *testing.T) {
		_, err := svc.SendConnectionRequest(ctx, 1, 1)
		require.Error(t, err)
	})

	t.Run("already connected", func(t *testing.T) {
		mockUserRepo.EXPECT().GetUserByID(ctx, uint64(2)).Return(&dbmysql.User{UserID: 2}, nil)
		mockConnRepo.EXPECT().GetConnectionBetween(ctx, uint64(1), uint64(2)).
			Return(&dbmysql.Connection{ID: "c-1", Status: "accepted"}, nil)

		_, err := svc.SendConnectionRequest(ctx, 1, 2)
		require.Error(t, err)
		require.Contains(t, err.Error(), "already")
	})

	t.Run("target not found", func(t *testing.T) {
		mockUserRepo.EXPECT().GetUserByID(ctx, uint64(99)).Return(nil, gorm.ErrRecordNotFound)
		_, err := svc.SendConnectionRequest(ctx, 1, 99)
		require.Error(t, err)
	})
}

func TestUserService_AcceptConnectionRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockUserRepo := NewMockUserRepository(ctrl)
	mockConnRepo := NewMockConnectionRepository(ctrl)
	svc := NewUserService(mockUserRepo, mockConnRepo)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		pending := &dbmysql.Connection{ID: "c-1", UserID: 2, ConnectedUserID: 1, Status: "pending"}
		mockConnRepo.EXPECT().GetConnectionBetween(ctx, uint64(2), uint64(1)).Return(pending, nil)
		mockConnRepo.EXPECT().UpdateConnection(ctx, gomock.Any()).DoAndReturn(
			func(_ context.Context, c *dbmysql.Connection) error {
				require.Equal(t, "accepted", c.Status)
				require.NotNil(t, c.AcceptedAt)
				require.WithinDuration(t, time.Now(), *c.AcceptedAt, time.Minute)
				return nil
			})

		require.NoError(t, svc.AcceptConnectionRequest(ctx, 1, 2))
	})

	t.Run("only the recipient can accept", func(t *testing.T) {
		pending := &dbmysql.Connection{ID: "c-2", UserID: 1, ConnectedUserID: 2, Status: "pending"}
		mockConnRepo.EXPECT().GetConnectionBetween(ctx, uint64(3), uint64(1)).Return(pending, nil)

		err := svc.AcceptConnectionRequest(ctx, 1, 3)
		require.Error(t, err)
		require.Contains(t, err.Error(), "recipient")
	})

	t.Run("not pending", func(t *testing.T) {
		accepted := &dbmysql.Connection{ID: "c-3", UserID: 2, ConnectedUserID: 1, Status: "accepted"}
		mockConnRepo.EXPECT().GetConnectionBetween(ctx, uint64(2), uint64(1)).Return(accepted, nil)

		err := svc.AcceptConnectionRequest(ctx, 1, 2)
		require.Error(t, err)
		require.Contains(t, err.Error(), "not pending")
	})
}

func TestUserService_ListConnections(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockUserRepo := NewMockUserRepository(ctrl)
	mockConnRepo := NewMockConnectionRepository(ctrl)
	svc := NewUserService(mockUserRepo, mockConnRepo)
	ctx := context.Background()

	want := []ConnectionInfo{
		{ConnectionID: "c-1", Handle: "bob", DisplayName: "Bob", AvatarURL: "https://cdn.example.com/bob.png"},
		{ConnectionID: "c-2", Handle: "carol", DisplayName: "Carol"},
	}
	mockConnRepo.EXPECT().ListActiveConnections(ctx, uint64(1)).Return(want, nil)

	got, err := svc.ListConnections(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestUserService_CanAccessConnection(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockUserRepo := NewMockUserRepository(ctrl)
	mockConnRepo := NewMockConnectionRepository(ctrl)
	svc := NewUserService(mockUserRepo, mockConnRepo)
	ctx := context.Background()

	mockConnRepo.EXPECT().IsParticipant(ctx, "c-1", uint64(1)).Return(true, nil)
	ok, err := svc.CanAccessConnection(ctx, "c-1", 1)
	require.NoError(t, err)
	require.True(t, ok)

	mockConnRepo.EXPECT().IsParticipant(ctx, "c-1", uint64(9)).Return(false, nil)
	ok, err = svc.CanAccessConnection(ctx, "c-1", 9)
	require.NoError(t, err)
	require.False(t, ok)
}

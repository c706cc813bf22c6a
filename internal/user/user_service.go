package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"devlink/internal/common"
	"devlink/internal/dbmysql"
)

type UserService interface {
	RegisterUser(ctx context.Context, handle, email, password string) (*dbmysql.User, string, error)
	LoginUser(ctx context.Context, handle, password string) (*dbmysql.User, string, error)
	GetProfile(ctx context.Context, userID uint64) (*dbmysql.User, error)
	UpdateProfile(ctx context.Context, userID uint64, displayName, avatarURL, email string) error
	SendConnectionRequest(ctx context.Context, userID, targetUserID uint64) (*dbmysql.Connection, error)
	AcceptConnectionRequest(ctx context.Context, userID, requesterID uint64) error
	ListConnections(ctx context.Context, userID uint64) ([]ConnectionInfo, error)
	CanAccessConnection(ctx context.Context, connectionID string, userID uint64) (bool, error)
}

type userService struct {
	userRepo UserRepository
	connRepo ConnectionRepository
}

func NewUserService(userRepo UserRepository, connRepo ConnectionRepository) UserService {
	return &userService{userRepo: userRepo, connRepo: connRepo}
}

func (s *userService) RegisterUser(ctx context.Context, handle, email, password string) (*dbmysql.User, string, error) {
	if err := common.ValidateHandle(handle); err != nil {
		return nil, "", err
	}

	if err := common.ValidateEmail(email); err != nil {
		return nil, "", err
	}

	if err := common.ValidatePassword(password); err != nil {
		return nil, "", err
	}

	exists, err := s.userRepo.CheckUserExists(ctx, handle)
	if err != nil {
		return nil, "", err
	}
	if exists {
		return nil, "", errors.New("handle already exists")
	}

	hashed, err := common.HashPassword(password)
	if err != nil {
		return nil, "", err
	}

	user := &dbmysql.User{
		Handle:       handle,
		Email:        email,
		PasswordHash: hashed,
		DisplayName:  handle,
		Status:       "active",
	}

	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := common.GenerateToken(user.UserID, user.Handle)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

func (s *userService) LoginUser(ctx context.Context, handle, password string) (*dbmysql.User, string, error) {
	if handle == "" || password == "" {
		return nil, "", errors.New("handle and password required")
	}

	user, err := s.userRepo.GetUserByHandle(ctx, handle)
	if err != nil {
		return nil, "", err
	}

	if user.Status != "active" {
		return nil, "", errors.New("user is not active")
	}

	if err := common.CheckPassword(password, user.PasswordHash); err != nil {
		return nil, "", errors.New("invalid password")
	}

	token, err := common.GenerateToken(user.UserID, user.Handle)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *userService) GetProfile(ctx context.Context, userID uint64) (*dbmysql.User, error) {
	return s.userRepo.GetUserByID(ctx, userID)
}

func (s *userService) UpdateProfile(ctx context.Context, userID uint64, displayName, avatarURL, email string) error {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if email != "" {
		if err := common.ValidateEmail(email); err != nil {
			return err
		}
		user.Email = email
	}

	if displayName != "" {
		user.DisplayName = displayName
	}

	if avatarURL != "" {
		user.AvatarURL = avatarURL
	}

	return s.userRepo.UpdateUser(ctx, user)
}

func (s *userService) SendConnectionRequest(ctx context.Context, userID, targetUserID uint64) (*dbmysql.Connection, error) {
	if userID == targetUserID {
		return nil, errors.New("cannot connect with yourself")
	}

	if _, err := s.userRepo.GetUserByID(ctx, targetUserID); err != nil {
		return nil, err
	}

	existing, err := s.connRepo.GetConnectionBetween(ctx, userID, targetUserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, errors.New("connection already exists or request pending")
	}

	conn := &dbmysql.Connection{
		ID:              uuid.NewString(),
		UserID:          userID,
		ConnectedUserID: targetUserID,
		Status:          "pending",
	}
	if err := s.connRepo.CreateConnection(ctx, conn); err != nil {
		return nil, err
	}
	return conn, nil
}

func (s *userService) AcceptConnectionRequest(ctx context.Context, userID, requesterID uint64) error {
	conn, err := s.connRepo.GetConnectionBetween(ctx, requesterID, userID)
	if err != nil {
		return err
	}
	if conn.ConnectedUserID != userID {
		return errors.New("only the recipient can accept a request")
	}
	if conn.Status != "pending" {
		return errors.New("connection request is not pending")
	}

	now := time.Now()
	conn.Status = "accepted"
	conn.AcceptedAt = &now
	return s.connRepo.UpdateConnection(ctx, conn)
}

func (s *userService) ListConnections(ctx context.Context, userID uint64) ([]ConnectionInfo, error) {
	return s.connRepo.ListActiveConnections(ctx, userID)
}

func (s *userService) CanAccessConnection(ctx context.Context, connectionID string, userID uint64) (bool, error) {
	return s.connRepo.IsParticipant(ctx, connectionID, userID)
}

package user

import (
	"context"

	"gorm.io/gorm"

	"devlink/internal/dbmysql"
)

// ConnectionInfo is the sidebar view of an accepted connection: the
// conversation id plus the other participant's public profile fields.
type ConnectionInfo struct {
	ConnectionID string `json:"connection_id"`
	Handle       string `json:"handle"`
	DisplayName  string `json:"display_name"`
	AvatarURL    string `json:"avatar_url"`
}

type ConnectionRepository interface {
	CreateConnection(ctx context.Context, conn *dbmysql.Connection) error
	GetConnection(ctx context.Context, connectionID string) (*dbmysql.Connection, error)
	GetConnectionBetween(ctx context.Context, userID, otherUserID uint64) (*dbmysql.Connection, error)
	UpdateConnection(ctx context.Context, conn *dbmysql.Connection) error
	ListActiveConnections(ctx context.Context, userID uint64) ([]ConnectionInfo, error)
	IsParticipant(ctx context.Context, connectionID string, userID uint64) (bool, error)
}

type connectionRepository struct {
	db *gorm.DB
}

func NewConnectionRepository(db *gorm.DB) ConnectionRepository {
	return &connectionRepository{db: db}
}

func (r *connectionRepository) CreateConnection(ctx context.Context, conn *dbmysql.Connection) error {
	return r.db.WithContext(ctx).Create(conn).Error
}

func (r *connectionRepository) GetConnection(ctx context.Context, connectionID string) (*dbmysql.Connection, error) {
	var conn dbmysql.Connection
	err := r.db.WithContext(ctx).Where("id = ?", connectionID).First(&conn).Error
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func (r *connectionRepository) GetConnectionBetween(ctx context.Context, userID, otherUserID uint64) (*dbmysql.Connection, error) {
	var conn dbmysql.Connection
	err := r.db.WithContext(ctx).
		Where("(user_id = ? AND connected_user_id = ?) OR (user_id = ? AND connected_user_id = ?)",
			userID, otherUserID, otherUserID, userID).
		First(&conn).Error
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func (r *connectionRepository) UpdateConnection(ctx context.Context, conn *dbmysql.Connection) error {
	return r.db.WithContext(ctx).Save(conn).Error
}

func (r *connectionRepository) ListActiveConnections(ctx context.Context, userID uint64) ([]ConnectionInfo, error) {
	var conns []dbmysql.Connection

	err := r.db.WithContext(ctx).
		Where("(user_id = ? OR connected_user_id = ?) AND status = ?", userID, userID, "accepted").
		Order("accepted_at DESC").
		Find(&conns).Error
	if err != nil {
		return nil, err
	}

	if len(conns) == 0 {
		return []ConnectionInfo{}, nil
	}

	// Fetch the other participant of each connection in one query.
	otherIDs := make([]uint64, 0, len(conns))
	otherByConn := make(map[string]uint64, len(conns))
	for _, c := range conns {
		other := c.ConnectedUserID
		if other == userID {
			other = c.UserID
		}
		otherIDs = append(otherIDs, other)
		otherByConn[c.ID] = other
	}

	var users []dbmysql.User
	err = r.db.WithContext(ctx).
		Where("user_id IN ?", otherIDs).
		Find(&users).Error
	if err != nil {
		return nil, err
	}

	byID := make(map[uint64]dbmysql.User, len(users))
	for _, u := range users {
		byID[u.UserID] = u
	}

	infos := make([]ConnectionInfo, 0, len(conns))
	for _, c := range conns {
		u, ok := byID[otherByConn[c.ID]]
		if !ok {
			continue
		}
		infos = append(infos, ConnectionInfo{
			ConnectionID: c.ID,
			Handle:       u.Handle,
			DisplayName:  u.DisplayName,
			AvatarURL:    u.AvatarURL,
		})
	}
	return infos, nil
}

func (r *connectionRepository) IsParticipant(ctx context.Context, connectionID string, userID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&dbmysql.Connection{}).
		Where("id = ? AND (user_id = ? OR connected_user_id = ?)", connectionID, userID, userID).
		Count(&count).Error
	return count > 0, err
}

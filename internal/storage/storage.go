package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"vidgogo/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// EventChannel is the redis pub/sub channel session lifecycle events are
// published on for external consumers (ops dashboards, analytics).
const EventChannel = "pair:events"

// Lifecycle event names.
const (
	EventSessionCreated = "session_created"
	EventSessionActive  = "session_active"
	EventSessionEnded   = "session_ended"
)

// Event is the JSON payload published on EventChannel.
type Event struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	At        time.Time `json:"at"`
}

type Storage interface {
	SaveSession(sess *models.Session) error
	MarkSessionActive(sessionID string) error
	CloseSession(sessionID, reason string) error
	GetSessionByID(sessionID string) (*models.Session, error)
	GetRecentSessions(limit int) ([]models.Session, error)

	IsUserBanned(anonID string) (bool, error)
	BanUser(anonID string, ttl time.Duration) error
	UnbanUser(anonID string) error

	AddUserToSearchQueue(userID string) error
	RemoveUserFromSearchQueue(userID string) error
	GetSearchingUsers() ([]string, error)

	PublishEvent(event, sessionID string) error
}

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// SaveSession persists a new session record in PostgreSQL.
func (s *Service) SaveSession(sess *models.Session) error {
	return s.DB.Save(sess).Error
}

// MarkSessionActive flips a session record to the active state.
func (s *Service) MarkSessionActive(sessionID string) error {
	return s.DB.Model(&models.Session{}).
		Where("session_id = ?", sessionID).
		Update("state", models.SessionActive).Error
}

// CloseSession finalizes a session record: terminal state, end reason
// and timestamp.
func (s *Service) CloseSession(sessionID, reason string) error {
	return s.DB.Model(&models.Session{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			"state":      models.SessionEnded,
			"end_reason": reason,
			"ended_at":   gorm.Expr("NOW()"),
		}).Error
}

func (s *Service) GetSessionByID(sessionID string) (*models.Session, error) {
	var sess models.Session

	err := s.DB.Where("session_id = ?", sessionID).First(&sess).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New("session not found")
	}
	if err != nil {
		log.Printf("ERROR: Failed to get session %s: %v", sessionID, err)
		return nil, err
	}
	return &sess, nil
}

// GetRecentSessions returns the newest session records, most recent first.
func (s *Service) GetRecentSessions(limit int) ([]models.Session, error) {
	var sessions []models.Session
	if err := s.DB.Order("started_at desc").Limit(limit).Find(&sessions).Error; err != nil {
		log.Printf("ERROR: Failed to list recent sessions: %v", err)
		return nil, err
	}
	return sessions, nil
}

// IsUserBanned checks the ban flag in Redis.
func (s *Service) IsUserBanned(anonID string) (bool, error) {
	key := "ban:" + anonID
	status, err := s.Redis.Get(s.Ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return status != "", nil
}

// BanUser sets the ban flag in Redis. A ttl of zero bans indefinitely.
func (s *Service) BanUser(anonID string, ttl time.Duration) error {
	return s.Redis.Set(s.Ctx, "ban:"+anonID, "banned", ttl).Err()
}

// UnbanUser clears the ban flag in Redis.
func (s *Service) UnbanUser(anonID string) error {
	return s.Redis.Del(s.Ctx, "ban:"+anonID).Err()
}

// PublishEvent publishes a session lifecycle event on Redis Pub/Sub.
func (s *Service) PublishEvent(event, sessionID string) error {
	payload, err := json.Marshal(Event{
		Type:      event,
		SessionID: sessionID,
		At:        time.Now(),
	})
	if err != nil {
		return err
	}

	if err := s.Redis.Publish(s.Ctx, EventChannel, string(payload)).Err(); err != nil {
		return err
	}

	return nil
}

// SubscribeEvents subscribes to the lifecycle event channel.
func (s *Service) SubscribeEvents() *redis.PubSub {
	return s.Redis.Subscribe(s.Ctx, EventChannel)
}

// AddUserToSearchQueue mirrors queue membership into Redis. The mirror
// is advisory (ops visibility); the in-process matcher is authoritative.
func (s *Service) AddUserToSearchQueue(userID string) error {
	return s.Redis.SAdd(s.Ctx, "search_queue", userID).Err()
}

// RemoveUserFromSearchQueue removes a user from the Redis queue mirror.
func (s *Service) RemoveUserFromSearchQueue(userID string) error {
	return s.Redis.SRem(s.Ctx, "search_queue", userID).Err()
}

// GetSearchingUsers returns everyone currently in the queue mirror.
func (s *Service) GetSearchingUsers() ([]string, error) {
	return s.Redis.SMembers(s.Ctx, "search_queue").Result()
}

package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cbs/consultation-web/internal/core/ports"
)

const authEventsCollection = "auth_events"

// AuthEventRepository implements ports.AuthEventRepository using MongoDB.
type AuthEventRepository struct {
	col       *mongo.Collection
	retention time.Duration
}

var _ ports.AuthEventRepository = (*AuthEventRepository)(nil)

// NewAuthEventRepository creates a repository over the auth_events
// collection. Events older than retention are expired by MongoDB; zero keeps
// them forever.
func NewAuthEventRepository(db *mongo.Database, retention time.Duration) *AuthEventRepository {
	return &AuthEventRepository{col: db.Collection(authEventsCollection), retention: retention}
}

type authEventDoc struct {
	SessionKey string    `bson:"session_key"`
	UserID     string    `bson:"user_id,omitempty"`
	Email      string    `bson:"email,omitempty"`
	Action     string    `bson:"action"`
	From       string    `bson:"from"`
	To         string    `bson:"to"`
	At         time.Time `bson:"at"`
	RecordedAt time.Time `bson:"recorded_at"`
}

// Insert persists one audit event.
func (r *AuthEventRepository) Insert(ctx context.Context, e *ports.AuthEvent) error {
	doc := authEventDoc{
		SessionKey: e.SessionKey,
		UserID:     e.UserID,
		Email:      e.Email,
		Action:     e.Action,
		From:       string(e.From),
		To:         string(e.To),
		At:         e.At.UTC(),
		RecordedAt: time.Now().UTC(),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert auth event: %w", err)
	}
	return nil
}

// EnsureIndexes creates the lookup and retention indexes on auth_events.
func (r *AuthEventRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "session_key", Value: 1}, {Key: "at", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
	}
	if r.retention > 0 {
		indexes = append(indexes, mongo.IndexModel{
			Keys:    bson.D{{Key: "recorded_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(r.retention.Seconds())),
		})
	}

	if _, err := r.col.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("ensure auth_events indexes: %w", err)
	}
	return nil
}

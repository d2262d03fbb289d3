package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pongarena/internal/model"

	"github.com/redis/go-redis/v9"
)

// SessionCache keeps a directory of session metadata in Redis so finished
// sessions stay queryable and players can find their open session again.
type SessionCache interface {
	SetMeta(ctx context.Context, meta *model.SessionMeta) error
	GetMeta(ctx context.Context, id string) (*model.SessionMeta, error)
	SetStatus(ctx context.Context, id string, status model.SessionStatus) error
	SetPlayerSession(ctx context.Context, playerID, sessionID string) error
	GetPlayerSession(ctx context.Context, playerID string) (string, error)
	ClearPlayerSession(ctx context.Context, playerID, sessionID string) error
}

type sessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionCache creates a new session cache
func NewSessionCache(client *redis.Client, ttl time.Duration) SessionCache {
	return &sessionCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *sessionCache) key(id string) string {
	return fmt.Sprintf("session:%s", id)
}

func (c *sessionCache) playerKey(playerID string) string {
	return fmt.Sprintf("player:%s:session", playerID)
}

func (c *sessionCache) SetMeta(ctx context.Context, meta *model.SessionMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(meta.ID), data, c.ttl).Err()
}

func (c *sessionCache) GetMeta(ctx context.Context, id string) (*model.SessionMeta, error) {
	data, err := c.client.Get(ctx, c.key(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var meta model.SessionMeta
	if err := json.Unmarshal([]byte(data), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (c *sessionCache) SetStatus(ctx context.Context, id string, status model.SessionStatus) error {
	meta, err := c.GetMeta(ctx, id)
	if err != nil {
		return err
	}
	if meta == nil {
		return fmt.Errorf("session %s not cached", id)
	}
	meta.Status = status
	meta.UpdatedAt = time.Now()
	return c.SetMeta(ctx, meta)
}

func (c *sessionCache) SetPlayerSession(ctx context.Context, playerID, sessionID string) error {
	return c.client.Set(ctx, c.playerKey(playerID), sessionID, c.ttl).Err()
}

func (c *sessionCache) GetPlayerSession(ctx context.Context, playerID string) (string, error) {
	id, err := c.client.Get(ctx, c.playerKey(playerID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return id, err
}

// ClearPlayerSession removes the index entry only while it still points at
// sessionID.
func (c *sessionCache) ClearPlayerSession(ctx context.Context, playerID, sessionID string) error {
	key := c.playerKey(playerID)
	return c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, key).Result()
		if err == redis.Nil || (err == nil && cur != sessionID) {
			return nil
		}
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}, key)
}

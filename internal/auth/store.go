package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const redisCacheTTL = 5 * time.Minute
const redisKeyPrefix = "modelplan:key:"

// KeyStore looks up admin key metadata by hash.
type KeyStore interface {
	Lookup(ctx context.Context, keyHash string) (*KeyMetadata, error)
}

// CachedKeyStore implements KeyStore with PostgreSQL + Redis cache.
type CachedKeyStore struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func NewCachedKeyStore(db *pgxpool.Pool, rdb *redis.Client) *CachedKeyStore {
	return &CachedKeyStore{db: db, redis: rdb}
}

func (s *CachedKeyStore) Lookup(ctx context.Context, keyHash string) (*KeyMetadata, error) {
	if s.redis != nil {
		cached, err := s.redis.Get(ctx, redisKeyPrefix+keyHash).Bytes()
		if err == nil {
			var meta KeyMetadata
			if err := json.Unmarshal(cached, &meta); err == nil {
				return &meta, nil
			}
		}
	}

	meta, err := s.lookupDB(ctx, keyHash)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, nil
	}

	if s.redis != nil {
		data, err := json.Marshal(meta)
		if err == nil {
			if err := s.redis.Set(ctx, redisKeyPrefix+keyHash, data, redisCacheTTL).Err(); err != nil {
				slog.Warn("admin key cache write failed", "error", err)
			}
		}
	}

	return meta, nil
}

func (s *CachedKeyStore) lookupDB(ctx context.Context, keyHash string) (*KeyMetadata, error) {
	if s.db == nil {
		return nil, nil
	}

	var meta KeyMetadata
	err := s.db.QueryRow(ctx, `
		SELECT id, name, rpm_limit, expires_at
		FROM admin_keys
		WHERE key_hash = $1
		  AND status = 'active'
		  AND expires_at > NOW()
	`, keyHash).Scan(&meta.ID, &meta.Name, &meta.RPMLimit, &meta.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query admin_keys: %w", err)
	}

	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := s.db.Exec(bgCtx, `UPDATE admin_keys SET last_used_at = NOW() WHERE id = $1`, meta.ID); err != nil {
			slog.Debug("update last_used_at failed", "key_id", meta.ID, "error", err)
		}
	}()

	return &meta, nil
}

// Insert stores a new admin key and returns its id.
func (s *CachedKeyStore) Insert(ctx context.Context, rawKey, name string, rpmLimit *int, expiresAt time.Time) (string, error) {
	if s.db == nil {
		return "", errors.New("admin key store has no database")
	}
	var id string
	err := s.db.QueryRow(ctx, `
		INSERT INTO admin_keys (key_hash, key_prefix, name, rpm_limit, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, HashKey(rawKey), KeyPrefix(rawKey), name, rpmLimit, expiresAt).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert admin key: %w", err)
	}
	return id, nil
}

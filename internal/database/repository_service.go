// Copyright 2025 Certen Protocol
//
// Service/ApiKey/CallbackURL repository — tenants, HMAC credentials, and the
// single callback URL+secret each service may register.

package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ServiceRepository struct {
	client *Client
}

func NewServiceRepository(client *Client) *ServiceRepository {
	return &ServiceRepository{client: client}
}

func (r *ServiceRepository) CreateService(ctx context.Context, name string) (*Service, error) {
	s := &Service{ID: uuid.New(), Name: name, CreatedAt: time.Now()}
	query := `INSERT INTO services (id, name, created_at) VALUES ($1, $2, $3)`
	if _, err := r.client.ExecContext(ctx, query, s.ID, s.Name, s.CreatedAt); err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}
	return s, nil
}

func (r *ServiceRepository) GetService(ctx context.Context, id uuid.UUID) (*Service, error) {
	s := &Service{}
	query := `SELECT id, name, created_at FROM services WHERE id = $1`
	err := r.client.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.Name, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrServiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get service: %w", err)
	}
	return s, nil
}

// CreateApiKey issues a new HMAC credential for a service.
func (r *ServiceRepository) CreateApiKey(ctx context.Context, serviceID uuid.UUID, key, secret string, whitelist *KeyWhitelist) (*ApiKey, error) {
	k := &ApiKey{ID: uuid.New(), ServiceID: serviceID, Key: key, Secret: secret, Whitelist: whitelist, CreatedAt: time.Now()}

	var whitelistJSON []byte
	if whitelist != nil {
		var err error
		whitelistJSON, err = json.Marshal(whitelist)
		if err != nil {
			return nil, fmt.Errorf("marshal whitelist: %w", err)
		}
	}

	query := `INSERT INTO api_keys (id, service_id, key, secret, whitelist, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.client.ExecContext(ctx, query, k.ID, k.ServiceID, k.Key, k.Secret, whitelistJSON, k.CreatedAt); err != nil {
		return nil, fmt.Errorf("create api key: %w", err)
	}
	return k, nil
}

// GetApiKeyByKey looks up the (service_id, secret, whitelist) tuple for a
// credential. This backs the C8 key cache's reload-on-miss path.
func (r *ServiceRepository) GetApiKeyByKey(ctx context.Context, key string) (*ApiKey, error) {
	k := &ApiKey{Key: key}
	var whitelistRaw []byte
	query := `SELECT id, service_id, secret, whitelist, created_at FROM api_keys WHERE key = $1`
	err := r.client.QueryRowContext(ctx, query, key).Scan(&k.ID, &k.ServiceID, &k.Secret, &whitelistRaw, &k.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrApiKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get api key: %w", err)
	}
	if err := k.scanWhitelist(whitelistRaw); err != nil {
		return nil, fmt.Errorf("decode whitelist: %w", err)
	}
	return k, nil
}

// UpsertCallbackURL sets or replaces the single callback URL/secret for a service.
func (r *ServiceRepository) UpsertCallbackURL(ctx context.Context, serviceID uuid.UUID, url, secret string) error {
	query := `INSERT INTO callback_urls (service_id, url, secret) VALUES ($1, $2, $3)
		ON CONFLICT (service_id) DO UPDATE SET url = EXCLUDED.url, secret = EXCLUDED.secret`
	if _, err := r.client.ExecContext(ctx, query, serviceID, url, secret); err != nil {
		return fmt.Errorf("upsert callback url: %w", err)
	}
	return nil
}

// GetCallbackURL returns a service's callback URL/secret. Returns
// ErrCallbackURLNotFound when none is registered (C10 treats that as a
// no-op delivery: the event is marked Notified without a POST).
func (r *ServiceRepository) GetCallbackURL(ctx context.Context, serviceID uuid.UUID) (*CallbackURL, error) {
	c := &CallbackURL{ServiceID: serviceID}
	query := `SELECT url, secret FROM callback_urls WHERE service_id = $1`
	err := r.client.QueryRowContext(ctx, query, serviceID).Scan(&c.URL, &c.Secret)
	if err == sql.ErrNoRows {
		return nil, ErrCallbackURLNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get callback url: %w", err)
	}
	return c, nil
}

package credentials

import (
	"context"
	"crypto/tls"
	"fmt"

	"accountsec/internal/models"

	"github.com/redis/rueidis"
)

type RueidisStore struct {
	client rueidis.Client
	key    string
}

func NewRueidisStore(config models.RedisCredentialsConfiguration, key string) (*RueidisStore, error) {
	clientOption := rueidis.ClientOption{
		InitAddress: config.Hosts,
		Password:    config.Password,
	}

	if config.TLSEnabled {
		clientOption.TLSConfig = &tls.Config{
			ServerName: config.TLSServerName,
			MinVersion: tls.VersionTLS12,
		}
	}

	client, err := rueidis.NewClient(clientOption)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if config.Namespace != "" {
		key = config.Namespace + ":" + key
	}
	return &RueidisStore{client: client, key: key}, nil
}

func (r *RueidisStore) Get(ctx context.Context) (string, error) {
	token, err := r.client.Do(ctx, r.client.B().Get().Key(r.key).Build()).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return "", nil
		}
		return "", err
	}
	return token, nil
}

func (r *RueidisStore) Set(ctx context.Context, token string) error {
	if token == "" {
		return r.Clear(ctx)
	}
	return r.client.Do(ctx, r.client.B().Set().Key(r.key).Value(token).Build()).Error()
}

func (r *RueidisStore) Clear(ctx context.Context) error {
	return r.client.Do(ctx, r.client.B().Del().Key(r.key).Build()).Error()
}

func (r *RueidisStore) Close() error {
	r.client.Close()
	return nil
}

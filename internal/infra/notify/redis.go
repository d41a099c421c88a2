// Package notify pushes "purchase provisioned" signals to the page the buyer
// lands on after payment.
package notify

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"compliance-training/internal/infra/events"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "purchase:provisioned:"
	retentionTime = 15 * time.Minute
)

type RedisNotifier struct {
	client *redis.Client
}

type Options struct {
	Addr     string
	Password string
	DB       int
	TLS      bool
}

// NewRedisNotifier returns nil when Redis is not configured and an error when
// it does not answer a ping; callers fall back to polling either way.
func NewRedisNotifier(ctx context.Context, opts Options) (*RedisNotifier, error) {
	if opts.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(clientOptions(opts))

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisNotifier{client: client}, nil
}

func clientOptions(opts Options) *redis.Options {
	ro := &redis.Options{Addr: opts.Addr, Password: opts.Password, DB: opts.DB}
	if opts.TLS {
		ro.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return ro
}

func NewRedisNotifierFromClient(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

func (n *RedisNotifier) Close() error {
	return n.client.Close()
}

// PublishProvisioned stores the event for late subscribers and fans it out to
// current ones.
func (n *RedisNotifier) PublishProvisioned(ctx context.Context, ev events.ProvisionedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	key := keyPrefix + ev.SessionID
	pipe := n.client.TxPipeline()
	pipe.Set(ctx, key, body, retentionTime)
	pipe.Publish(ctx, key, body)
	_, err = pipe.Exec(ctx)
	return err
}

// WaitProvisioned blocks until an event for the session is available or ctx
// is done.
func (n *RedisNotifier) WaitProvisioned(ctx context.Context, sessionID string) (events.ProvisionedEvent, error) {
	key := keyPrefix + sessionID

	sub := n.client.Subscribe(ctx, key)
	defer func() { _ = sub.Close() }()

	// Subscribe first, then read the key, so an event published in between is
	// not lost.
	if _, err := sub.Receive(ctx); err != nil {
		return events.ProvisionedEvent{}, err
	}
	raw, err := n.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		return decode(raw)
	case !errors.Is(err, redis.Nil):
		return events.ProvisionedEvent{}, err
	}

	select {
	case msg, ok := <-sub.Channel():
		if !ok {
			return events.ProvisionedEvent{}, errors.New("subscription closed")
		}
		return decode([]byte(msg.Payload))
	case <-ctx.Done():
		return events.ProvisionedEvent{}, ctx.Err()
	}
}

func decode(raw []byte) (events.ProvisionedEvent, error) {
	var ev events.ProvisionedEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return ev, fmt.Errorf("decode provisioned event: %w", err)
	}
	return ev, nil
}

package notify

import (
	"context"
	"crypto/tls"
	"testing"
)

func TestClientOptions(t *testing.T) {
	plain := clientOptions(Options{Addr: "redis:6379", Password: "pw", DB: 2})
	if plain.Addr != "redis:6379" || plain.Password != "pw" || plain.DB != 2 || plain.TLSConfig != nil {
		t.Fatalf("plain options = %+v", plain)
	}

	secure := clientOptions(Options{Addr: "cache.example.com:6380", TLS: true})
	if secure.TLSConfig == nil || secure.TLSConfig.MinVersion != tls.VersionTLS12 {
		t.Fatalf("TLS not enabled: %+v", secure.TLSConfig)
	}
}

func TestNewRedisNotifierDisabledWithoutAddr(t *testing.T) {
	n, err := NewRedisNotifier(context.Background(), Options{TLS: true})
	if err != nil || n != nil {
		t.Fatalf("NewRedisNotifier = %v, %v; want nil, nil", n, err)
	}
}

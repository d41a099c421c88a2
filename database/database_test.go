package database

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"
	"time"

	"gorm.io/gorm"
)

func TestGormLoggerSkipsRecordNotFound(t *testing.T) {
	var buf bytes.Buffer
	l := newGormLogger(log.New(&buf, "", 0))
	query := func() (string, int64) { return `SELECT * FROM "accounts" LIMIT 1`, 0 }

	l.Trace(context.Background(), time.Now(), query, gorm.ErrRecordNotFound)
	if buf.Len() != 0 {
		t.Fatalf("record not found was logged: %s", buf.String())
	}

	l.Trace(context.Background(), time.Now(), query, errors.New("connection reset"))
	if !bytes.Contains(buf.Bytes(), []byte("connection reset")) {
		t.Fatalf("real error not logged: %q", buf.String())
	}
}

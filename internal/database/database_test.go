// internal/database/database_test.go
//
// Run: go test ./internal/database -v

package database

import (
	"context"
	"testing"
)

func TestOpenRejectsBadDSN(t *testing.T) {
	if _, err := Open(context.Background(), "not a dsn"); err == nil {
		t.Fatal("expected parse error")
	}
}

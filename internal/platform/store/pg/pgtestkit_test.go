package pg

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// testPool opens a pool against dsn with an optional config mutator and
// closes it on test cleanup
func testPool(t *testing.T, dsn string, mut func(*pgxpool.Config)) *PG {
	t.Helper()

	client, err := Open(context.Background(), Config{URL: dsn}, nil, mut)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// pinConn holds one pooled connection for the whole test so TEMP tables
// and session settings survive between statements
func pinConn(t *testing.T, ctx context.Context, p *PG) *pgxpool.Conn {
	t.Helper()

	conn, err := p.Pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	t.Cleanup(func() { conn.Release() })
	return conn
}

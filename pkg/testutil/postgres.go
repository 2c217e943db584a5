package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	pkgpostgres "github.com/bibbank/loanservicing/pkg/postgres"
)

// Database is a throwaway PostgreSQL reachable through the same pool settings
// the service uses.
type Database struct {
	Config pkgpostgres.Config
	Pool   *pgxpool.Pool
}

// DSN is the migration URL for the database.
func (d *Database) DSN() string { return d.Config.DSN() }

// NewDatabase starts PostgreSQL in a container, connects a pool through
// pkg/postgres and tears both down when t finishes.
func NewDatabase(ctx context.Context, t *testing.T) *Database {
	t.Helper()

	const credential = "loanservicing"
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase(credential),
		tcpostgres.WithUsername(credential),
		tcpostgres.WithPassword(credential),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() { terminate(t, container) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("postgres host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("postgres port: %v", err)
	}

	cfg := pkgpostgres.Config{
		Host:             host,
		Port:             port.Int(),
		User:             credential,
		Password:         credential,
		Database:         credential,
		SSLMode:          "disable",
		MaxConns:         4,
		ApplicationName:  "loan-servicing-it",
		StatementTimeout: 10 * time.Second,
	}
	pool, err := pkgpostgres.NewPool(ctx, cfg)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	t.Cleanup(pool.Close)

	return &Database{Config: cfg, Pool: pool}
}

func terminate(t *testing.T, c testcontainers.Container) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.Terminate(ctx); err != nil {
		t.Logf("terminate container: %v", err)
	}
}

//go:build integration

package kv

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
	store     *Postgres
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db

	s.store = NewPostgres(db)
	s.Require().NoError(s.store.EnsureSchema(s.ctx))
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM kv_items")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) TestSetGet() {
	err := s.store.Set(s.ctx, "resource:content:abc", []byte(`{"title":"x"}`))
	s.NoError(err)

	value, err := s.store.Get(s.ctx, "resource:content:abc")
	s.NoError(err)
	s.JSONEq(`{"title":"x"}`, string(value))
}

func (s *PostgresIntegrationSuite) TestGetMissing() {
	_, err := s.store.Get(s.ctx, "resource:content:missing")
	s.ErrorIs(err, ErrNotFound)
}

func (s *PostgresIntegrationSuite) TestSetOverwrites() {
	s.NoError(s.store.Set(s.ctx, "meta-data:k", []byte(`{"v":1}`)))
	s.NoError(s.store.Set(s.ctx, "meta-data:k", []byte(`{"v":2}`)))

	value, err := s.store.Get(s.ctx, "meta-data:k")
	s.NoError(err)
	s.JSONEq(`{"v":2}`, string(value))

	var count int
	s.NoError(s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM kv_items"))
	s.Equal(1, count)
}

func (s *PostgresIntegrationSuite) TestKeysPrefix() {
	s.NoError(s.store.Set(s.ctx, "resource:content:a", []byte(`{}`)))
	s.NoError(s.store.Set(s.ctx, "resource:content:b", []byte(`{}`)))
	s.NoError(s.store.Set(s.ctx, "resource:asset:c", []byte(`{}`)))

	keys, err := s.store.Keys(s.ctx, "resource:content")
	s.NoError(err)
	s.Equal([]string{"resource:content:a", "resource:content:b"}, keys)
}

func (s *PostgresIntegrationSuite) TestDelete() {
	s.NoError(s.store.Set(s.ctx, "subscription:email:a@b.c", []byte(`{}`)))

	deleted, err := s.store.Delete(s.ctx, "subscription:email:a@b.c")
	s.NoError(err)
	s.True(deleted)

	deleted, err = s.store.Delete(s.ctx, "subscription:email:a@b.c")
	s.NoError(err)
	s.False(deleted)
}

func (s *PostgresIntegrationSuite) TestGetItemsPreservesOrder() {
	s.NoError(s.store.Set(s.ctx, "resource:asset:a", []byte(`{"n":1}`)))
	s.NoError(s.store.Set(s.ctx, "resource:asset:b", []byte(`{"n":2}`)))

	items, err := s.store.GetItems(s.ctx, []string{"resource:asset:b", "resource:asset:missing", "resource:asset:a"})
	s.NoError(err)
	s.Len(items, 2)
	s.Equal("resource:asset:b", items[0].Key)
	s.Equal("resource:asset:a", items[1].Key)
}

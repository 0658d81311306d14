package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation = "23505"
	// invalidText is raised when a path id is not a valid uuid.
	invalidText = "22P02"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type postgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a Postgres-backed unit of work.
func NewPostgresStore(pool *pgxpool.Pool) UnitOfWork {
	return &postgresStore{pool: pool}
}

func (s *postgresStore) Repositories() Repositories {
	return newRepositories(s.pool)
}

// WithinTx runs fn in a single transaction; any error rolls every write back.
func (s *postgresStore) WithinTx(ctx context.Context, fn TxFunc) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, newRepositories(tx))
	})
}

func (s *postgresStore) Ping(ctx context.Context) error {
	if s.pool == nil {
		return errors.New("postgres pool not configured")
	}
	return s.pool.Ping(ctx)
}

func newRepositories(db DBTX) Repositories {
	return Repositories{
		Users:         NewUserRepository(db),
		Catalog:       NewCatalog(db),
		Orders:        NewOrderRepository(db),
		Promotions:    NewPromotionRepository(db),
		Plans:         NewPlanRepository(db),
		Subscriptions: NewSubscriptionRepository(db),
		Notifications: NewNotificationRepository(db),
	}
}

// translate maps driver errors onto repository sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return ErrDuplicate
		case invalidText:
			return ErrNotFound
		}
	}
	return err
}

func requireAffected(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

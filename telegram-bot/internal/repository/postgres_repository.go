package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/tomoca-dev/Tomo-web/telegram-bot/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresRepository talks to a plain Postgres database with the same schema
// as the hosted store. Used for local development.
type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(ctx context.Context, dsn string) (*PostgresRepository, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	return &PostgresRepository{db: db}, nil
}

func NewPostgresRepositoryFromDB(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) RunMigrations() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open embedded migrations: %w", err)
	}

	driver, err := postgres.WithInstance(r.db.DB, &postgres.Config{
		MigrationsTable: "bot_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListActiveByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	query := `SELECT id, name, price, image_url, description, category, is_active
	          FROM products WHERE is_active = TRUE AND category = $1 ORDER BY name ASC`

	var products []domain.Product
	if err := r.db.SelectContext(ctx, &products, query, category); err != nil {
		return nil, fmt.Errorf("list products in %q: %w", category, err)
	}
	return products, nil
}

func (r *PostgresRepository) GetActiveProduct(ctx context.Context, id string) (*domain.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrProductNotFound
	}

	query := `SELECT id, name, price, image_url, description, category, is_active
	          FROM products WHERE id = $1 AND is_active = TRUE`

	var product domain.Product
	err := r.db.GetContext(ctx, &product, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %q: %w", id, err)
	}
	return &product, nil
}

func (r *PostgresRepository) CreateOrder(ctx context.Context, telegramUserID string) (*domain.Order, error) {
	query := `INSERT INTO orders (id, telegram_user_id, status, created_at)
	          VALUES ($1, $2, $3, NOW())
	          RETURNING id, telegram_user_id, status, phone, address, created_at`

	var order domain.Order
	err := r.db.GetContext(ctx, &order, query, uuid.NewString(), telegramUserID, domain.OrderStatusNew)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	return &order, nil
}

func (r *PostgresRepository) AddOrderItem(ctx context.Context, item domain.OrderItem) error {
	query := `INSERT INTO order_items (order_id, product_id, qty, price) VALUES ($1, $2, $3, $4)`

	_, err := r.db.ExecContext(ctx, query, item.OrderID, item.ProductID, item.Qty, item.Price)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return fmt.Errorf("insert order item: unknown order or product: %w", err)
		}
		return fmt.Errorf("insert order item: %w", err)
	}
	return nil
}

func (r *PostgresRepository) LatestOrderForUser(ctx context.Context, telegramUserID string) (*domain.Order, error) {
	query := `SELECT id, telegram_user_id, status, phone, address, created_at
	          FROM orders WHERE telegram_user_id = $1 ORDER BY created_at DESC LIMIT 1`

	var order domain.Order
	err := r.db.GetContext(ctx, &order, query, telegramUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest order for %s: %w", telegramUserID, err)
	}
	return &order, nil
}

func (r *PostgresRepository) UpdateOrder(ctx context.Context, id string, patch domain.OrderPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	var (
		sets []string
		args []interface{}
	)
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Phone != nil {
		add("phone", *patch.Phone)
	}
	if patch.Address != nil {
		add("address", *patch.Address)
	}
	if patch.Status != nil {
		add("status", string(*patch.Status))
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE orders SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update order %s: %w", id, err)
	}
	return nil
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

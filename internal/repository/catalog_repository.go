package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/slicehouse/pizzeria/internal/domain"
)

var catalogTables = map[domain.CatalogKind]string{
	domain.KindBase:    "pizza_bases",
	domain.KindSauce:   "pizza_sauces",
	domain.KindCheese:  "pizza_cheeses",
	domain.KindTopping: "pizza_toppings",
}

type catalog struct {
	db DBTX
}

// NewCatalog returns Postgres-backed repositories for the four component tables.
func NewCatalog(db DBTX) Catalog {
	return &catalog{db: db}
}

func (c *catalog) Kind(kind domain.CatalogKind) CatalogRepository {
	return &catalogRepository{db: c.db, kind: kind, table: catalogTables[kind]}
}

type catalogRepository struct {
	db    DBTX
	kind  domain.CatalogKind
	table string
}

func (r *catalogRepository) vegetarianColumn() string {
	if r.kind == domain.KindTopping {
		return "is_vegetarian"
	}
	return "FALSE"
}

func (r *catalogRepository) selectColumns() string {
	return "id, name, description, price, image_url, stock, threshold, " + r.vegetarianColumn() + ", created_at, updated_at"
}

func (r *catalogRepository) Create(ctx context.Context, item *domain.CatalogItem) error {
	if r.table == "" {
		return fmt.Errorf("unknown catalog kind %q", r.kind)
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.Kind = r.kind

	columns := "id, name, description, price, image_url, stock, threshold"
	values := "$1,$2,$3,$4,$5,$6,$7"
	args := []any{item.ID, item.Name, item.Description, item.Price, item.ImageURL, item.Stock, item.Threshold}
	if r.kind == domain.KindTopping {
		columns += ", is_vegetarian"
		values += ",$8"
		args = append(args, item.IsVegetarian)
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING created_at, updated_at`, r.table, columns, values)
	return translate(r.db.QueryRow(ctx, query, args...).Scan(&item.CreatedAt, &item.UpdatedAt))
}

func (r *catalogRepository) Update(ctx context.Context, item *domain.CatalogItem) error {
	sets := "name=$1, description=$2, price=$3, image_url=$4, threshold=$5, updated_at=NOW()"
	args := []any{item.Name, item.Description, item.Price, item.ImageURL, item.Threshold}
	if r.kind == domain.KindTopping {
		args = append(args, item.IsVegetarian)
		sets += fmt.Sprintf(", is_vegetarian=$%d", len(args))
	}
	args = append(args, item.ID)
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id=$%d RETURNING stock, updated_at`, r.table, sets, len(args))
	return translate(r.db.QueryRow(ctx, query, args...).Scan(&item.Stock, &item.UpdatedAt))
}

func (r *catalogRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id=$1`, r.table)
	return requireAffected(r.db.Exec(ctx, query, id))
}

func (r *catalogRepository) GetByID(ctx context.Context, id string) (*domain.CatalogItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id=$1`, r.selectColumns(), r.table)
	item, err := r.scan(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate(err)
	}
	return item, nil
}

func (r *catalogRepository) GetForUpdate(ctx context.Context, id string) (*domain.CatalogItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id=$1`, r.selectColumns(), r.table)
	if _, inTx := r.db.(pgx.Tx); inTx {
		query += ` FOR UPDATE`
	}
	item, err := r.scan(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate(err)
	}
	return item, nil
}

func (r *catalogRepository) List(ctx context.Context, filter CatalogFilter) ([]domain.CatalogItem, error) {
	clauses := []string{"1=1"}
	if filter.InStockOnly {
		clauses = append(clauses, "stock > 0")
	}
	if filter.LowStockOnly {
		clauses = append(clauses, "stock <= threshold")
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY name`, r.selectColumns(), r.table, strings.Join(clauses, " AND "))

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []domain.CatalogItem{}
	for rows.Next() {
		item, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (r *catalogRepository) AdjustStock(ctx context.Context, id string, delta int) (*domain.CatalogItem, error) {
	query := fmt.Sprintf(`
        UPDATE %s SET stock = stock + $1, updated_at=NOW()
        WHERE id=$2 AND stock + $1 >= 0
        RETURNING %s`, r.table, r.selectColumns())

	item, err := r.scan(r.db.QueryRow(ctx, query, delta, id))
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrInsufficientStock
	}
	if err != nil {
		return nil, translate(err)
	}
	return item, nil
}

func (r *catalogRepository) scan(row pgx.Row) (*domain.CatalogItem, error) {
	item := domain.CatalogItem{Kind: r.kind}
	if err := row.Scan(
		&item.ID,
		&item.Name,
		&item.Description,
		&item.Price,
		&item.ImageURL,
		&item.Stock,
		&item.Threshold,
		&item.IsVegetarian,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &item, nil
}

// Package repository содержит доступ к каталогу товаров и приёмнику
// завершённых продаж в PostgreSQL. Каталогом владеет внешняя система
// магазина: терминал читает товары и дописывает продажи, не более того.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"

	"github.com/Mango070919/MeatDepotApp-sub001/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrProductNotFound возвращается, если товар не найден в каталоге.
var (
	ErrProductNotFound = errors.New("product not found")
	// ErrBarcodeExists возвращается при попытке создать товар с уже занятым штрихкодом.
	ErrBarcodeExists = errors.New("barcode already exists")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// ListProducts возвращает каталог товаров для экранной сетки кассира.
func (r *PostgresRepository) ListProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, price_cents, unit, COALESCE(barcode, '')
		 FROM products
		 ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

// GetProductByBarcode возвращает товар по штрихкоду.
func (r *PostgresRepository) GetProductByBarcode(ctx context.Context, code string) (*model.Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, price_cents, unit, COALESCE(barcode, '')
		 FROM products
		 WHERE barcode = $1`,
		code,
	)
	return getProduct(row)
}

// GetProductByID возвращает товар по идентификатору.
func (r *PostgresRepository) GetProductByID(ctx context.Context, id int64) (*model.Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, price_cents, unit, COALESCE(barcode, '')
		 FROM products
		 WHERE id = $1`,
		id,
	)
	return getProduct(row)
}

// CreateProduct добавляет товар в каталог. Используется при начальном
// заполнении каталога; повседневное управление товарами остаётся за
// внешней системой магазина.
func (r *PostgresRepository) CreateProduct(ctx context.Context, p model.Product) (int64, error) {
	var barcode *string
	if p.Barcode != "" {
		barcode = &p.Barcode
	}

	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO products (name, price_cents, unit, barcode) VALUES ($1, $2, $3, $4) RETURNING id`,
		p.Name, toCents(p.UnitPrice), string(p.Unit), barcode,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrBarcodeExists, p.Barcode)
		}
		return 0, fmt.Errorf("create product: %w", err)
	}
	return id, nil
}

// RecordCompletedSale дописывает завершённую продажу вместе с позициями.
// Продажа и позиции вставляются в одной транзакции БД.
func (r *PostgresRepository) RecordCompletedSale(ctx context.Context, sale model.Transaction) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var tenderedCents *int64
	if sale.Tendered != nil {
		v := toCents(*sale.Tendered)
		tenderedCents = &v
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO sales (id, payment, tendered_cents, total_cents, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		sale.ID, string(sale.Payment), tenderedCents, toCents(sale.Total()), sale.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			// Продажа уже записана предыдущей попыткой завершения.
			return nil
		}
		return fmt.Errorf("insert sale: %w", err)
	}

	for i, l := range sale.Lines {
		var weight *float64
		if l.Product.Unit == model.PricingUnitWeightBased {
			w := l.WeightGrams
			weight = &w
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO sale_lines
			 (id, sale_id, position, product_id, product_name, unit, price_cents, quantity, weight_grams, total_cents)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			l.ID, sale.ID, i, l.Product.ID, l.Product.Name, string(l.Product.Unit),
			toCents(l.Product.UnitPrice), l.Quantity, weight, toCents(l.Total()),
		)
		if err != nil {
			return fmt.Errorf("insert sale line: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

func getProduct(row pgx.Row) (*model.Product, error) {
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanProduct(row pgx.Row) (model.Product, error) {
	var (
		p          model.Product
		priceCents int64
		unit       string
	)
	if err := row.Scan(&p.ID, &p.Name, &priceCents, &unit, &p.Barcode); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Product{}, err
		}
		return model.Product{}, fmt.Errorf("scan product: %w", err)
	}
	p.UnitPrice = fromCents(priceCents)
	p.Unit = model.PricingUnit(unit)
	return p, nil
}

// Денежные суммы хранятся в копейках, как целые числа; в decimal они
// конвертируются только на границе хранилища.
func toCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func fromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

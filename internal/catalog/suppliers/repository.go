package suppliers

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sioms/sioms/internal/catalog"
	"github.com/sioms/sioms/internal/platform/db"
	"github.com/sioms/sioms/internal/shared"
)

type Repository interface {
	List(ctx context.Context, filters catalog.ListFilters) ([]Supplier, int, error)
	Get(ctx context.Context, id int64) (Supplier, error)
	Create(ctx context.Context, supplier Supplier) (Supplier, error)
	Update(ctx context.Context, id int64, supplier Supplier) (Supplier, error)
	Delete(ctx context.Context, id int64) error
	CountProducts(ctx context.Context, id int64) (int, error)
	Products(ctx context.Context, id int64) ([]SupplierProduct, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const columns = `id, name, contact_person, email, phone, address, city, state, postal_code, country, status, created_at, updated_at`

var sortColumns = map[string]string{
	"name":       "name",
	"city":       "city",
	"created_at": "created_at",
}

func scan(row pgx.Row) (Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.Name, &s.ContactPerson, &s.Email, &s.Phone, &s.Address, &s.City, &s.State,
		&s.PostalCode, &s.Country, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *repository) List(ctx context.Context, filters catalog.ListFilters) ([]Supplier, int, error) {
	var where catalog.Where
	if filters.Status != "" {
		where.Add("status = $%d", filters.Status)
	}
	if filters.Search != "" {
		where.Add("(name ILIKE $%d OR contact_person ILIKE $%d OR email ILIKE $%d OR phone ILIKE $%d)", "%"+filters.Search+"%")
	}
	conn := db.Conn(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM suppliers`+where.SQL(), where.Args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + columns + ` FROM suppliers` + where.SQL() +
		` ORDER BY ` + catalog.SortOrder(filters.SortBy, filters.SortDir, sortColumns, "name")
	query += ` LIMIT ` + where.Next(filters.Limit) + ` OFFSET ` + where.Next(filters.Offset())

	rows, err := conn.Query(ctx, query, where.Args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Supplier
	for rows.Next() {
		s, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Supplier, error) {
	s, err := scan(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+columns+` FROM suppliers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, &shared.NotFoundError{Entity: "supplier", ID: id}
	}
	return s, err
}

func (r *repository) Create(ctx context.Context, s Supplier) (Supplier, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO suppliers
(name, contact_person, email, phone, address, city, state, postal_code, country, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING `+columns,
		s.Name, s.ContactPerson, s.Email, s.Phone, s.Address, s.City, s.State, s.PostalCode, s.Country, s.Status)
	created, err := scan(row)
	return created, db.Translate(err)
}

func (r *repository) Update(ctx context.Context, id int64, s Supplier) (Supplier, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `UPDATE suppliers SET
name = $2, contact_person = $3, email = $4, phone = $5, address = $6, city = $7, state = $8,
postal_code = $9, country = $10, status = $11, updated_at = NOW()
WHERE id = $1
RETURNING `+columns,
		id, s.Name, s.ContactPerson, s.Email, s.Phone, s.Address, s.City, s.State, s.PostalCode, s.Country, s.Status)
	updated, err := scan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, &shared.NotFoundError{Entity: "supplier", ID: id}
	}
	return updated, db.Translate(err)
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	if err != nil {
		var ri *shared.ReferentialIntegrityError
		if translated := db.Translate(err); errors.As(translated, &ri) {
			return &shared.ReferentialIntegrityError{Entity: "supplier", ID: id, Dependents: "products"}
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "supplier", ID: id}
	}
	return nil
}

func (r *repository) CountProducts(ctx context.Context, id int64) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE supplier_id = $1`, id).Scan(&n)
	return n, err
}

func (r *repository) Products(ctx context.Context, id int64) ([]SupplierProduct, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT id, name, sku, unit_price, stock_quantity, reorder_level, status
FROM products WHERE supplier_id = $1 ORDER BY name`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SupplierProduct
	for rows.Next() {
		var p SupplierProduct
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &p.UnitPrice, &p.StockQuantity, &p.ReorderLevel, &p.Status); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

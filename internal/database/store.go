// Package database holds the SQL connection pool and the repositories backed by it.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/01moynul/storefront/internal/models"
	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// Store implements models.UserRepository and models.ProductRepository on database/sql.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open pool.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

var (
	_ models.UserRepository    = (*Store)(nil)
	_ models.ProductRepository = (*Store)(nil)
)

const userColumns = "id, username, email, password_hash, role, google_id, picture, created_at, updated_at"

// --- Users ---

// CreateUser inserts a new user row. Unique violations map to models.ErrDuplicate.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, role, google_id, picture, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Role, u.GoogleID, u.Picture,
		u.CreatedAt.UTC(), u.UpdatedAt.UTC(),
	)
	if err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("create user: %w", models.ErrDuplicate)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UserByID looks a user up by primary key.
func (s *Store) UserByID(ctx context.Context, id string) (*models.User, error) {
	return s.userWhere(ctx, "id = ?", id)
}

// UserByEmail looks a user up by unique email.
func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.userWhere(ctx, "email = ?", email)
}

// UserByUsername looks a user up by unique username.
func (s *Store) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.userWhere(ctx, "username = ?", username)
}

// UserByGoogleID looks a user up by linked Google account.
func (s *Store) UserByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return s.userWhere(ctx, "google_id = ?", googleID)
}

func (s *Store) userWhere(ctx context.Context, cond string, arg any) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE "+cond, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role,
		&u.GoogleID, &u.Picture, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

// LinkGoogleAccount attaches a Google identity to an existing user.
// The picture is only overwritten when one is supplied.
func (s *Store) LinkGoogleAccount(ctx context.Context, userID, googleID string, picture *string) error {
	query := `
		UPDATE users
		SET google_id = ?, picture = COALESCE(?, picture), updated_at = ?
		WHERE id = ?`

	res, err := s.db.ExecContext(ctx, query, googleID, picture, time.Now().UTC(), userID)
	if err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("link google account: %w", models.ErrDuplicate)
		}
		return fmt.Errorf("link google account: %w", err)
	}
	return expectRow(res, models.ErrUserNotFound)
}

// UpdateUserRole changes a user's role.
func (s *Store) UpdateUserRole(ctx context.Context, userID, role string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET role = ?, updated_at = ? WHERE id = ?",
		role, time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("update user role: %w", err)
	}
	return expectRow(res, models.ErrUserNotFound)
}

// --- Products ---

const productColumns = "id, title, description, price, image_url, created_by, created_at, updated_at"

// CreateProduct inserts a product row.
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (id, title, description, price, image_url, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.Title, p.Description, p.Price, p.ImageURL, p.CreatedBy,
		p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

// ProductByID fetches a single product.
func (s *Store) ProductByID(ctx context.Context, id string) (*models.Product, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = ?", id)

	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return p, nil
}

// ListProducts returns one page of products, newest first.
func (s *Store) ListProducts(ctx context.Context, offset, limit int) ([]*models.Product, error) {
	query := "SELECT " + productColumns + " FROM products ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []*models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

// CountProducts returns the total number of products.
func (s *Store) CountProducts(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

// UpdateProduct overwrites the mutable columns of a product.
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	query := `
		UPDATE products
		SET title = ?, description = ?, price = ?, image_url = ?, updated_at = ?
		WHERE id = ?`

	res, err := s.db.ExecContext(ctx, query,
		p.Title, p.Description, p.Price, p.ImageURL, p.UpdatedAt.UTC(), p.ID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return expectRow(res, models.ErrProductNotFound)
}

// DeleteProduct removes a product row.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return expectRow(res, models.ErrProductNotFound)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (*models.Product, error) {
	var p models.Product
	if err := row.Scan(
		&p.ID, &p.Title, &p.Description, &p.Price, &p.ImageURL,
		&p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

// expectRow turns "zero rows affected" into notFound.
func expectRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func isDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

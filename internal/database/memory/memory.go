// Package memory implements in-memory repositories for development and testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/01moynul/storefront/internal/models"
)

// DB implements an in-memory database storage.
type DB struct {
	mu       sync.Mutex
	users    map[string]*models.User
	products map[string]*models.Product
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		users:    make(map[string]*models.User),
		products: make(map[string]*models.Product),
	}
}

// Ensure interfaces are met.
var _ models.UserRepository = (*DB)(nil)
var _ models.ProductRepository = (*DB)(nil)

// --- UserRepository ---

// CreateUser stores a copy of u, enforcing the same unique columns as the SQL schema.
func (db *DB) CreateUser(ctx context.Context, u *models.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.users[u.ID]; ok {
		return models.ErrDuplicate
	}
	for _, existing := range db.users {
		if existing.Email == u.Email || existing.Username == u.Username {
			return models.ErrDuplicate
		}
		if u.GoogleID != nil && existing.GoogleID != nil && *existing.GoogleID == *u.GoogleID {
			return models.ErrDuplicate
		}
	}

	cp := *u
	db.users[u.ID] = &cp
	return nil
}

// UserByID returns a user by id.
func (db *DB) UserByID(ctx context.Context, id string) (*models.User, error) {
	return db.findUser(func(u *models.User) bool { return u.ID == id })
}

// UserByEmail returns a user by email.
func (db *DB) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.findUser(func(u *models.User) bool { return u.Email == email })
}

// UserByUsername returns a user by username.
func (db *DB) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	return db.findUser(func(u *models.User) bool { return u.Username == username })
}

// UserByGoogleID returns a user by linked Google id.
func (db *DB) UserByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return db.findUser(func(u *models.User) bool {
		return u.GoogleID != nil && *u.GoogleID == googleID
	})
}

func (db *DB) findUser(match func(*models.User) bool) (*models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, models.ErrUserNotFound
}

// LinkGoogleAccount sets the google id and, when given, the picture.
func (db *DB) LinkGoogleAccount(ctx context.Context, userID, googleID string, picture *string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	u, ok := db.users[userID]
	if !ok {
		return models.ErrUserNotFound
	}
	for id, other := range db.users {
		if id != userID && other.GoogleID != nil && *other.GoogleID == googleID {
			return models.ErrDuplicate
		}
	}

	gid := googleID
	u.GoogleID = &gid
	if picture != nil {
		p := *picture
		u.Picture = &p
	}
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateUserRole changes a user's role.
func (db *DB) UpdateUserRole(ctx context.Context, userID, role string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	u, ok := db.users[userID]
	if !ok {
		return models.ErrUserNotFound
	}
	u.Role = role
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// --- ProductRepository ---

// CreateProduct stores a copy of p.
func (db *DB) CreateProduct(ctx context.Context, p *models.Product) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.products[p.ID]; ok {
		return models.ErrDuplicate
	}
	cp := *p
	db.products[p.ID] = &cp
	return nil
}

// ProductByID returns a product by id.
func (db *DB) ProductByID(ctx context.Context, id string) (*models.Product, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	p, ok := db.products[id]
	if !ok {
		return nil, models.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

// ListProducts returns a page of products, newest first.
func (db *DB) ListProducts(ctx context.Context, offset, limit int) ([]*models.Product, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	all := make([]*models.Product, 0, len(db.products))
	for _, p := range db.products {
		cp := *p
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return []*models.Product{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// CountProducts returns the number of stored products.
func (db *DB) CountProducts(ctx context.Context) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.products), nil
}

// UpdateProduct replaces the mutable fields of a stored product.
func (db *DB) UpdateProduct(ctx context.Context, p *models.Product) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	existing, ok := db.products[p.ID]
	if !ok {
		return models.ErrProductNotFound
	}
	existing.Title = p.Title
	existing.Description = p.Description
	existing.Price = p.Price
	existing.ImageURL = p.ImageURL
	existing.UpdatedAt = p.UpdatedAt
	return nil
}

// DeleteProduct removes a product.
func (db *DB) DeleteProduct(ctx context.Context, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.products[id]; !ok {
		return models.ErrProductNotFound
	}
	delete(db.products, id)
	return nil
}

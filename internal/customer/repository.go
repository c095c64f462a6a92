// Package customer stores coupon-buying customers.
package customer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nerrad567/coupon-core/internal/infrastructure/database"
)

// Customer buys coupons. PasswordHash is an argon2id PHC string.
type Customer struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	PasswordHash string `json:"-"`
}

// Repository defines persistence operations for customers.
type Repository interface {
	Create(ctx context.Context, c *Customer) error
	GetByID(ctx context.Context, id int64) (*Customer, error)
	GetByName(ctx context.Context, name string) (*Customer, error)
	List(ctx context.Context) ([]Customer, error)
	NameExists(ctx context.Context, name string) (bool, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	Delete(ctx context.Context, id int64) error
}

// SQLiteRepository implements Repository over leased SQLite connections.
type SQLiteRepository struct {
	pool *database.Pool
}

// NewSQLiteRepository creates a customer repository that leases from pool.
func NewSQLiteRepository(pool *database.Pool) *SQLiteRepository {
	return &SQLiteRepository{pool: pool}
}

// Create inserts c and sets c.ID.
func (r *SQLiteRepository) Create(ctx context.Context, c *Customer) error {
	return r.pool.Do(ctx, func(ctx context.Context, conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx,
			"INSERT INTO customers (name, password_hash) VALUES (?, ?)", c.Name, c.PasswordHash,
		)
		if err != nil {
			return fmt.Errorf("inserting customer: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading customer id: %w", err)
		}
		c.ID = id
		return nil
	})
}

// GetByID returns a customer or ErrNotFound.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*Customer, error) {
	return r.getOne(ctx, "SELECT id, name, password_hash FROM customers WHERE id = ?", id)
}

// GetByName returns a customer or ErrNotFound.
func (r *SQLiteRepository) GetByName(ctx context.Context, name string) (*Customer, error) {
	return r.getOne(ctx, "SELECT id, name, password_hash FROM customers WHERE name = ?", name)
}

func (r *SQLiteRepository) getOne(ctx context.Context, query string, arg any) (*Customer, error) {
	var c Customer
	err := r.pool.Do(ctx, func(ctx context.Context, conn *sql.Conn) error {
		err := conn.QueryRowContext(ctx, query, arg).Scan(&c.ID, &c.Name, &c.PasswordHash)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("querying customer: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns every customer ordered by id.
func (r *SQLiteRepository) List(ctx context.Context) ([]Customer, error) {
	customers := []Customer{}
	err := r.pool.Do(ctx, func(ctx context.Context, conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, "SELECT id, name, password_hash FROM customers ORDER BY id")
		if err != nil {
			return fmt.Errorf("querying customers: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var c Customer
			if err := rows.Scan(&c.ID, &c.Name, &c.PasswordHash); err != nil {
				return fmt.Errorf("scanning customer: %w", err)
			}
			customers = append(customers, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return customers, nil
}

// NameExists reports whether a customer already uses name.
func (r *SQLiteRepository) NameExists(ctx context.Context, name string) (bool, error) {
	var found bool
	err := r.pool.Do(ctx, func(ctx context.Context, conn *sql.Conn) error {
		if err := conn.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM customers WHERE name = ?)", name,
		).Scan(&found); err != nil {
			return fmt.Errorf("checking customer name: %w", err)
		}
		return nil
	})
	return found, err
}

// UpdatePassword replaces the stored password hash.
func (r *SQLiteRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return r.pool.Do(ctx, func(ctx context.Context, conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, "UPDATE customers SET password_hash = ? WHERE id = ?", passwordHash, id)
		if err != nil {
			return fmt.Errorf("updating customer: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("reading rows affected: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Delete removes the customer and their purchase history in one transaction.
// Purchased coupons themselves are kept.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	return r.pool.Do(ctx, func(ctx context.Context, conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("starting transaction: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

		if _, err := tx.ExecContext(ctx, "DELETE FROM customer_coupon WHERE cust_id = ?", id); err != nil {
			return fmt.Errorf("removing purchase links: %w", err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM customers WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("deleting customer: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("reading rows affected: %w", err)
		} else if n == 0 {
			return ErrNotFound
		}
		return tx.Commit()
	})
}

// Package company stores coupon-issuing companies.
package company

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nerrad567/coupon-core/internal/infrastructure/database"
)

// Company is a coupon issuer. PasswordHash is an argon2id PHC string.
type Company struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	PasswordHash string `json:"-"`
	Email        string `json:"email"`
}

// Repository defines persistence operations for companies.
type Repository interface {
	Create(ctx context.Context, c *Company) error
	GetByID(ctx context.Context, id int64) (*Company, error)
	GetByName(ctx context.Context, name string) (*Company, error)
	List(ctx context.Context) ([]Company, error)
	NameExists(ctx context.Context, name string) (bool, error)
	EmailTaken(ctx context.Context, email string, exceptID int64) (bool, error)
	Update(ctx context.Context, c *Company) error
	Delete(ctx context.Context, id int64) (removedCoupons int, err error)
}

// SQLiteRepository implements Repository over leased SQLite connections.
type SQLiteRepository struct {
	pool *database.Pool
}

// NewSQLiteRepository creates a company repository that leases from pool.
func NewSQLiteRepository(pool *database.Pool) *SQLiteRepository {
	return &SQLiteRepository{pool: pool}
}

// Create inserts c and sets c.ID.
func (r *SQLiteRepository) Create(ctx context.Context, c *Company) error {
	return r.pool.Do(ctx, func(ctx context.Context, conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx,
			"INSERT INTO companies (name, password_hash, email) VALUES (?, ?, ?)",
			c.Name, c.PasswordHash, c.Email,
		)
		if err != nil {
			return fmt.Errorf("inserting company: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading company id: %w", err)
		}
		c.ID = id
		return nil
	})
}

// GetByID returns a company or ErrNotFound.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*Company, error) {
	return r.getOne(ctx, "SELECT id, name, password_hash, email FROM companies WHERE id = ?", id)
}

// GetByName returns a company or ErrNotFound.
func (r *SQLiteRepository) GetByName(ctx context.Context, name string) (*Company, error) {
	return r.getOne(ctx, "SELECT id, name, password_hash, email FROM companies WHERE name = ?", name)
}

func (r *SQLiteRepository) getOne(ctx context.Context, query string, arg any) (*Company, error) {
	var c Company
	err := r.pool.Do(ctx, func(ctx context.Context, conn *sql.Conn) error {
		err := conn.QueryRowContext(ctx, query, arg).Scan(&c.ID, &c.Name, &c.PasswordHash, &c.Email)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("querying company: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns every company ordered by id.
func (r *SQLiteRepository) List(ctx context.Context) ([]Company, error) {
	companies := []Company{}
	err := r.pool.Do(ctx, func(ctx context.Context, conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, "SELECT id, name, password_hash, email FROM companies ORDER BY id")
		if err != nil {
			return fmt.Errorf("querying companies: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var c Company
			if err := rows.Scan(&c.ID, &c.Name, &c.PasswordHash, &c.Email); err != nil {
				return fmt.Errorf("scanning company: %w", err)
			}
			companies = append(companies, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return companies, nil
}

// NameExists reports whether a company already uses name.
func (r *SQLiteRepository) NameExists(ctx context.Context, name string) (bool, error) {
	return r.exists(ctx, "SELECT EXISTS(SELECT 1 FROM companies WHERE name = ?)", name)
}

// EmailTaken reports whether another company (not exceptID) uses email.
func (r *SQLiteRepository) EmailTaken(ctx context.Context, email string, exceptID int64) (bool, error) {
	return r.exists(ctx, "SELECT EXISTS(SELECT 1 FROM companies WHERE email = ? AND id != ?)", email, exceptID)
}

func (r *SQLiteRepository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var found bool
	err := r.pool.Do(ctx, func(ctx context.Context, conn *sql.Conn) error {
		if err := conn.QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
			return fmt.Errorf("checking company: %w", err)
		}
		return nil
	})
	return found, err
}

// Update writes the password hash and email. The name is immutable.
func (r *SQLiteRepository) Update(ctx context.Context, c *Company) error {
	return r.pool.Do(ctx, func(ctx context.Context, conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx,
			"UPDATE companies SET password_hash = ?, email = ? WHERE id = ?",
			c.PasswordHash, c.Email, c.ID,
		)
		if err != nil {
			return fmt.Errorf("updating company: %w", err)
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

// Delete removes a company together with every coupon it issued.
// Coupon links are removed before the coupons themselves, all in one transaction.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) (int, error) {
	var removed int
	err := r.pool.Do(ctx, func(ctx context.Context, conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("starting transaction: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

		couponIDs, err := ownedCoupons(ctx, tx, id)
		if err != nil {
			return err
		}

		for _, cid := range couponIDs {
			if _, err := tx.ExecContext(ctx, "DELETE FROM customer_coupon WHERE coupon_id = ?", cid); err != nil {
				return fmt.Errorf("removing customer links for coupon %d: %w", cid, err)
			}
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM company_coupon WHERE comp_id = ?", id); err != nil {
			return fmt.Errorf("removing company links: %w", err)
		}
		for _, cid := range couponIDs {
			if _, err := tx.ExecContext(ctx, "DELETE FROM coupons WHERE id = ?", cid); err != nil {
				return fmt.Errorf("removing coupon %d: %w", cid, err)
			}
		}
		removed = len(couponIDs)

		res, err := tx.ExecContext(ctx, "DELETE FROM companies WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("deleting company: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("reading rows affected: %w", err)
		} else if n == 0 {
			return ErrNotFound
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// ownedCoupons returns the ids of coupons issued by companyID.
func ownedCoupons(ctx context.Context, tx *sql.Tx, companyID int64) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, "SELECT coupon_id FROM company_coupon WHERE comp_id = ?", companyID)
	if err != nil {
		return nil, fmt.Errorf("querying company coupons: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning coupon id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

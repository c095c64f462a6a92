package coupon

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/coupon-core/internal/infrastructure/database"
)

// couponColumns is the column list shared by every coupon SELECT.
const couponColumns = "c.id, c.title, c.start_date, c.end_date, c.amount, c.type, c.message, c.price, c.image"

// Repository defines persistence operations for coupons.
type Repository interface {
	Create(ctx context.Context, c *Coupon, companyID int64) error
	GetByID(ctx context.Context, id int64) (*Coupon, error)
	TitleExists(ctx context.Context, title string) (bool, error)
	List(ctx context.Context) ([]Coupon, error)
	ListByCompany(ctx context.Context, companyID int64, f Filter) ([]Coupon, error)
	ListByCustomer(ctx context.Context, customerID int64, f Filter) ([]Coupon, error)
	OwnedBy(ctx context.Context, companyID, couponID int64) (bool, error)
	Update(ctx context.Context, c *Coupon) error
	Delete(ctx context.Context, id int64) error
	Purchase(ctx context.Context, customerID, couponID int64, today time.Time) error

	FindExpired(ctx context.Context, now time.Time) ([]Coupon, error)
	RemoveLinkage(ctx context.Context, kind Linkage, couponID int64) error
	RemoveRecord(ctx context.Context, couponID int64) error
}

// SQLiteRepository implements Repository over leased SQLite connections.
type SQLiteRepository struct {
	pool *database.Pool
}

// NewSQLiteRepository creates a coupon repository that leases from pool.
func NewSQLiteRepository(pool *database.Pool) *SQLiteRepository {
	return &SQLiteRepository{pool: pool}
}

// Create inserts c and links it to its issuing company in one transaction.
// c.ID is set on success.
func (r *SQLiteRepository) Create(ctx context.Context, c *Coupon, companyID int64) error {
	return r.pool.Do(ctx, func(ctx context.Context, conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("starting transaction: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

		res, err := tx.ExecContext(ctx,
			`INSERT INTO coupons (title, start_date, end_date, amount, type, message, price, image)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.Title, c.StartDate.Format(DateLayout), c.EndDate.Format(DateLayout),
			c.Amount, string(c.Type), c.Message, c.Price, c.Image,
		)
		if err != nil {
			return fmt.Errorf("inserting coupon: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading coupon id: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO company_coupon (comp_id, coupon_id) VALUES (?, ?)", companyID, id,
		); err != nil {
			return fmt.Errorf("linking coupon to company: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing coupon: %w", err)
		}
		c.ID = id
		return nil
	})
}

// GetByID returns a coupon or ErrNotFound.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*Coupon, error) {
	var c *Coupon
	err := r.pool.Do(ctx, func(ctx context.Context, conn *sql.Conn) error {
		row := conn.QueryRowContext(ctx, "SELECT "+couponColumns+" FROM coupons c WHERE c.id = ?", id)
		var err error
		c, err = scanCoupon(row)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// TitleExists reports whether any coupon already uses title.
func (r *SQLiteRepository) TitleExists(ctx context.Context, title string) (bool, error) {
	var exists bool
	err := r.pool.Do(ctx, func(ctx context.Context, conn *sql.Conn) error {
		err := conn.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM coupons WHERE title = ?)", title,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("checking coupon title: %w", err)
		}
		return nil
	})
	return exists, err
}

// List returns every coupon ordered by id.
func (r *SQLiteRepository) List(ctx context.Context) ([]Coupon, error) {
	return r.query(ctx, "SELECT "+couponColumns+" FROM coupons c ORDER BY c.id")
}

// ListByCompany returns the company's coupons matching f.
func (r *SQLiteRepository) ListByCompany(ctx context.Context, companyID int64, f Filter) ([]Coupon, error) {
	where, args := f.clauses("cc.comp_id = ?", companyID)
	return r.query(ctx,
		"SELECT "+couponColumns+" FROM coupons c JOIN company_coupon cc ON cc.coupon_id = c.id WHERE "+where+" ORDER BY c.id",
		args...,
	)
}

// ListByCustomer returns the customer's purchased coupons matching f.
func (r *SQLiteRepository) ListByCustomer(ctx context.Context, customerID int64, f Filter) ([]Coupon, error) {
	where, args := f.clauses("cu.cust_id = ?", customerID)
	return r.query(ctx,
		"SELECT "+couponColumns+" FROM coupons c JOIN customer_coupon cu ON cu.coupon_id = c.id WHERE "+where+" ORDER BY c.id",
		args...,
	)
}

// OwnedBy reports whether companyID issued couponID.
func (r *SQLiteRepository) OwnedBy(ctx context.Context, companyID, couponID int64) (bool, error) {
	var owned bool
	err := r.pool.Do(ctx, func(ctx context.Context, conn *sql.Conn) error {
		err := conn.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM company_coupon WHERE comp_id = ? AND coupon_id = ?)",
			companyID, couponID,
		).Scan(&owned)
		if err != nil {
			return fmt.Errorf("checking coupon owner: %w", err)
		}
		return nil
	})
	return owned, err
}

// Update writes the mutable fields: end date, price and amount.
func (r *SQLiteRepository) Update(ctx context.Context, c *Coupon) error {
	return r.pool.Do(ctx, func(ctx context.Context, conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx,
			"UPDATE coupons SET end_date = ?, price = ?, amount = ? WHERE id = ?",
			c.EndDate.Format(DateLayout), c.Price, c.Amount, c.ID,
		)
		if err != nil {
			return fmt.Errorf("updating coupon: %w", err)
		}
		return requireRow(res)
	})
}

// Delete removes a coupon with both of its links in one transaction.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	return r.pool.Do(ctx, func(ctx context.Context, conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("starting transaction: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

		for _, kind := range Linkages {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+string(kind)+" WHERE coupon_id = ?", id); err != nil {
				return fmt.Errorf("removing %s links: %w", kind, err)
			}
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM coupons WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("deleting coupon: %w", err)
		}
		if err := requireRow(res); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// Purchase links couponID to customerID and decrements its amount.
//
// Returns ErrNotFound, ErrExpired, ErrSoldOut or ErrAlreadyPurchased when the
// purchase is not allowed. today decides expiry.
func (r *SQLiteRepository) Purchase(ctx context.Context, customerID, couponID int64, today time.Time) error {
	return r.pool.Do(ctx, func(ctx context.Context, conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("starting transaction: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

		c, err := scanCoupon(tx.QueryRowContext(ctx, "SELECT "+couponColumns+" FROM coupons c WHERE c.id = ?", couponID))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if c.ExpiredOn(today) {
			return fmt.Errorf("%w: ended %s", ErrExpired, c.EndDate.Format(DateLayout))
		}

		var owned bool
		if err := tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM customer_coupon WHERE cust_id = ? AND coupon_id = ?)",
			customerID, couponID,
		).Scan(&owned); err != nil {
			return fmt.Errorf("checking purchase history: %w", err)
		}
		if owned {
			return ErrAlreadyPurchased
		}

		res, err := tx.ExecContext(ctx,
			"UPDATE coupons SET amount = amount - 1 WHERE id = ? AND amount > 0", couponID,
		)
		if err != nil {
			return fmt.Errorf("decrementing amount: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("reading rows affected: %w", err)
		} else if n == 0 {
			return ErrSoldOut
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO customer_coupon (cust_id, coupon_id) VALUES (?, ?)", customerID, couponID,
		); err != nil {
			return fmt.Errorf("linking coupon to customer: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing purchase: %w", err)
		}
		return nil
	})
}

// FindExpired returns coupons whose end date is strictly before the day of now.
func (r *SQLiteRepository) FindExpired(ctx context.Context, now time.Time) ([]Coupon, error) {
	return r.query(ctx,
		"SELECT "+couponColumns+" FROM coupons c WHERE c.end_date < ? ORDER BY c.id",
		now.Format(DateLayout),
	)
}

// RemoveLinkage deletes every row of the given join table that references couponID.
// Removing zero rows is not an error.
func (r *SQLiteRepository) RemoveLinkage(ctx context.Context, kind Linkage, couponID int64) error {
	if kind != LinkCompany && kind != LinkCustomer {
		return fmt.Errorf("%w: %q", ErrInvalidLinkage, kind)
	}
	return r.pool.Do(ctx, func(ctx context.Context, conn *sql.Conn) error {
		// kind is one of the two constants above.
		if _, err := conn.ExecContext(ctx, "DELETE FROM "+string(kind)+" WHERE coupon_id = ?", couponID); err != nil {
			return fmt.Errorf("removing %s links for coupon %d: %w", kind, couponID, err)
		}
		return nil
	})
}

// RemoveRecord deletes the coupon row. It fails while links still reference it,
// and returns ErrNotFound if the row is already gone.
func (r *SQLiteRepository) RemoveRecord(ctx context.Context, couponID int64) error {
	return r.pool.Do(ctx, func(ctx context.Context, conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, "DELETE FROM coupons WHERE id = ?", couponID)
		if err != nil {
			return fmt.Errorf("deleting coupon %d: %w", couponID, err)
		}
		return requireRow(res)
	})
}

// query runs a coupon SELECT on one leased connection.
func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]Coupon, error) {
	var coupons []Coupon
	err := r.pool.Do(ctx, func(ctx context.Context, conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("querying coupons: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			c, err := scanCoupon(rows)
			if err != nil {
				return err
			}
			coupons = append(coupons, *c)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating coupons: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if coupons == nil {
		coupons = []Coupon{}
	}
	return coupons, nil
}

// clauses builds the WHERE clause for f on top of a base condition.
func (f Filter) clauses(base string, baseArg any) (string, []any) {
	conditions := []string{base}
	args := []any{baseArg}

	if f.Type != "" {
		conditions = append(conditions, "c.type = ?")
		args = append(args, string(f.Type))
	}
	if f.MaxPrice != nil {
		conditions = append(conditions, "c.price <= ?")
		args = append(args, *f.MaxPrice)
	}
	if !f.EndsBy.IsZero() {
		conditions = append(conditions, "c.end_date <= ?")
		args = append(args, f.EndsBy.Format(DateLayout))
	}
	return strings.Join(conditions, " AND "), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCoupon(s scanner) (*Coupon, error) {
	var c Coupon
	var start, end, typ string
	if err := s.Scan(&c.ID, &c.Title, &start, &end, &c.Amount, &typ, &c.Message, &c.Price, &c.Image); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning coupon: %w", err)
	}

	var err error
	if c.StartDate, err = ParseDate(start); err != nil {
		return nil, fmt.Errorf("coupon %d start date: %w", c.ID, err)
	}
	if c.EndDate, err = ParseDate(end); err != nil {
		return nil, fmt.Errorf("coupon %d end date: %w", c.ID, err)
	}
	c.Type = Type(typ)
	return &c, nil
}

// requireRow maps a zero-row result to ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

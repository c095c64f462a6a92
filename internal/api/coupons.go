package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/coupon-core/internal/coupon"
)

// couponView is the wire form of a coupon. Dates are YYYY-MM-DD.
type couponView struct {
	ID        int64       `json:"id"`
	Title     string      `json:"title"`
	StartDate string      `json:"start_date"`
	EndDate   string      `json:"end_date"`
	Amount    int         `json:"amount"`
	Type      coupon.Type `json:"type"`
	Message   string      `json:"message"`
	Price     float64     `json:"price"`
	Image     string      `json:"image"`
}

func newCouponView(c *coupon.Coupon) couponView {
	return couponView{
		ID:        c.ID,
		Title:     c.Title,
		StartDate: c.StartDate.Format(coupon.DateLayout),
		EndDate:   c.EndDate.Format(coupon.DateLayout),
		Amount:    c.Amount,
		Type:      c.Type,
		Message:   c.Message,
		Price:     c.Price,
		Image:     c.Image,
	}
}

func newCouponViews(cs []coupon.Coupon) []couponView {
	views := make([]couponView, 0, len(cs))
	for i := range cs {
		views = append(views, newCouponView(&cs[i]))
	}
	return views
}

// couponRequest is the body for creating a coupon.
type couponRequest struct {
	Title     string  `json:"title"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	Amount    int     `json:"amount"`
	Type      string  `json:"type"`
	Message   string  `json:"message"`
	Price     float64 `json:"price"`
	Image     string  `json:"image"`
}

func (req couponRequest) toCoupon() (*coupon.Coupon, error) {
	start, err := coupon.ParseDate(req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("start_date must be YYYY-MM-DD")
	}
	end, err := coupon.ParseDate(req.EndDate)
	if err != nil {
		return nil, fmt.Errorf("end_date must be YYYY-MM-DD")
	}
	typ, err := coupon.ParseType(req.Type)
	if err != nil {
		return nil, fmt.Errorf("type %q is not a coupon type", req.Type)
	}
	return &coupon.Coupon{
		Title:     req.Title,
		StartDate: start,
		EndDate:   end,
		Amount:    req.Amount,
		Type:      typ,
		Message:   req.Message,
		Price:     req.Price,
		Image:     req.Image,
	}, nil
}

// couponUpdateRequest is the body for updating a coupon. Only the end date
// and price may change.
type couponUpdateRequest struct {
	EndDate string  `json:"end_date"`
	Price   float64 `json:"price"`
}

// parseCouponFilter reads type, max_price and ends_by query parameters.
func parseCouponFilter(r *http.Request) (coupon.Filter, error) {
	var f coupon.Filter
	q := r.URL.Query()

	if v := q.Get("type"); v != "" {
		typ, err := coupon.ParseType(v)
		if err != nil {
			return f, fmt.Errorf("type %q is not a coupon type", v)
		}
		f.Type = typ
	}
	if v := q.Get("max_price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return f, fmt.Errorf("max_price must be a number")
		}
		f.MaxPrice = &price
	}
	if v := q.Get("ends_by"); v != "" {
		d, err := coupon.ParseDate(v)
		if err != nil {
			return f, fmt.Errorf("ends_by must be YYYY-MM-DD")
		}
		f.EndsBy = d
	}
	return f, nil
}

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("id must be a positive integer")
	}
	return id, nil
}

// decodeJSON decodes the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

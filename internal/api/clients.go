package api

import (
	"net/http"

	"github.com/nerrad567/coupon-core/internal/coupon"
	"github.com/nerrad567/coupon-core/internal/facade"
)

// companyFacade returns the facade for the authenticated company.
func (s *Server) companyFacade(r *http.Request) *facade.CompanyFacade {
	p, _ := principalFromContext(r.Context()) //nolint:errcheck // requireClient guarantees presence
	return s.facades.Company(p.ID)
}

// customerFacade returns the facade for the authenticated customer.
func (s *Server) customerFacade(r *http.Request) *facade.CustomerFacade {
	p, _ := principalFromContext(r.Context()) //nolint:errcheck // requireClient guarantees presence
	return s.facades.Customer(p.ID)
}

func (s *Server) handleCompanyInfo(w http.ResponseWriter, r *http.Request) {
	c, err := s.companyFacade(r).Info(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleListCompanyCoupons lists the company's coupons.
// Query parameters: type, max_price, ends_by.
func (s *Server) handleListCompanyCoupons(w http.ResponseWriter, r *http.Request) {
	filter, err := parseCouponFilter(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	coupons, err := s.companyFacade(r).ListCoupons(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"coupons": newCouponViews(coupons), "count": len(coupons)})
}

func (s *Server) handleCreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	c, err := req.toCoupon()
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}
	if err := s.companyFacade(r).CreateCoupon(r.Context(), c); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCouponView(c))
}

func (s *Server) handleGetCompanyCoupon(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	c, err := s.companyFacade(r).GetCoupon(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCouponView(c))
}

func (s *Server) handleUpdateCoupon(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	var req couponUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "only end_date and price can be updated")
		return
	}
	end, err := coupon.ParseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "end_date must be YYYY-MM-DD")
		return
	}
	c, err := s.companyFacade(r).UpdateCoupon(r.Context(), id, end, req.Price)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCouponView(c))
}

func (s *Server) handleRemoveCoupon(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if err := s.companyFacade(r).RemoveCoupon(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCustomerInfo(w http.ResponseWriter, r *http.Request) {
	c, err := s.customerFacade(r).Info(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleListPurchased lists the customer's coupons.
// Query parameters: type, max_price.
func (s *Server) handleListPurchased(w http.ResponseWriter, r *http.Request) {
	filter, err := parseCouponFilter(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	coupons, err := s.customerFacade(r).ListPurchased(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"coupons": newCouponViews(coupons), "count": len(coupons)})
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if err := s.customerFacade(r).Purchase(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"purchased": id})
}

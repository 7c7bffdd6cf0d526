package http

import (
	"context"
	"net/http"
	"time"

	"evrental-backend/internal/domain"
)

type createRentalRequest struct {
	VehicleModelID        int32     `json:"vehicle_model_id"`
	StartTime             time.Time `json:"start_time"`
	EndTime               time.Time `json:"end_time"`
	DepositAmount         *int64    `json:"deposit_amount,omitempty"`
	BookingForOthers      bool      `json:"booking_for_others"`
	RenterLicenseImageRef string    `json:"renter_license_image_ref,omitempty"`
}

type confirmRentalRequest struct {
	Accept bool   `json:"accept"`
	Notes  string `json:"notes"`
}

type inspectionRequest struct {
	Odometer int32  `json:"odometer"`
	Battery  int32  `json:"battery"`
	PhotoRef string `json:"photo_ref"`
	Notes    string `json:"notes"`
}

func (i inspectionRequest) toDomain() domain.Inspection {
	return domain.Inspection{Odometer: i.Odometer, Battery: i.Battery, PhotoRef: i.PhotoRef, Notes: i.Notes}
}

type cancelRentalRequest struct {
	Reason string `json:"reason"`
}

type listRentalsResponse struct {
	Rentals  []domain.Order `json:"rentals"`
	Total    int32          `json:"total"`
	Page     int32          `json:"page"`
	PageSize int32          `json:"page_size"`
}

func (h *Handler) CreateRental(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	var req createRentalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.rentals.CreateRental(r.Context(), actor, domain.CreateRentalRequest{
		VehicleModelID:        req.VehicleModelID,
		StartTime:             req.StartTime,
		EndTime:               req.EndTime,
		DepositAmount:         req.DepositAmount,
		BookingForOthers:      req.BookingForOthers,
		RenterLicenseImageRef: req.RenterLicenseImageRef,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) ListRentals(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	status := domain.OrderStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeError(w, r, domain.Validationf("unknown status %q", status))
		return
	}
	page, err := queryInt32(r, "page", 1)
	if err != nil {
		writeError(w, r, err)
		return
	}
	pageSize, err := queryInt32(r, "page_size", 20)
	if err != nil {
		writeError(w, r, err)
		return
	}

	orders, total, err := h.rentals.ListRentals(r.Context(), actor, status, page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	writeJSON(w, http.StatusOK, listRentalsResponse{Rentals: orders, Total: total, Page: page, PageSize: pageSize})
}

func (h *Handler) GetRental(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	order, err := h.rentals.GetRental(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) ConfirmRental(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req confirmRentalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	order, err := h.rentals.StaffConfirm(r.Context(), actor, id, req.Accept, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandoverRental(w http.ResponseWriter, r *http.Request) {
	h.inspect(w, r, h.rentals.Handover)
}

func (h *Handler) ReturnRental(w http.ResponseWriter, r *http.Request) {
	h.inspect(w, r, h.rentals.Return)
}

type inspectFunc func(ctx context.Context, actor domain.Actor, orderID int32, insp domain.Inspection) (*domain.Order, error)

func (h *Handler) inspect(w http.ResponseWriter, r *http.Request, do inspectFunc) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req inspectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	order, err := do(r.Context(), actor, id, req.toDomain())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) CancelRental(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req cancelRentalRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	order, err := h.rentals.Cancel(r.Context(), actor, id, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

package http

import (
	"net/http"
	"time"

	"evrental-backend/internal/domain"
)

type availableVehiclesRequest struct {
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	StationID      int32     `json:"station_id"`
	Brand          string    `json:"brand"`
	MinSeats       int32     `json:"min_seats"`
	MaxPricePerDay int64     `json:"max_price_per_day"`
}

type availableVehiclesResponse struct {
	Vehicles []domain.AvailableVehicle `json:"vehicles"`
}

type availabilityResponse struct {
	VehicleModelID int32     `json:"vehicle_model_id"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	Available      bool      `json:"available"`
}

func (h *Handler) ListAvailableVehicles(w http.ResponseWriter, r *http.Request) {
	var req availableVehiclesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	filter := domain.VehicleFilter{
		StationID:      req.StationID,
		Brand:          req.Brand,
		MinSeats:       req.MinSeats,
		MaxPricePerDay: req.MaxPricePerDay,
	}
	vehicles, err := h.availability.ListAvailableVehicleModels(r.Context(), filter, req.StartTime, req.EndTime)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if vehicles == nil {
		vehicles = []domain.AvailableVehicle{}
	}
	writeJSON(w, http.StatusOK, availableVehiclesResponse{Vehicles: vehicles})
}

// window reads the {id} path segment and the start/end query parameters.
func window(r *http.Request) (int32, time.Time, time.Time, error) {
	id, err := pathID(r)
	if err != nil {
		return 0, time.Time{}, time.Time{}, err
	}
	start, err := queryTime(r, "start")
	if err != nil {
		return 0, time.Time{}, time.Time{}, err
	}
	end, err := queryTime(r, "end")
	if err != nil {
		return 0, time.Time{}, time.Time{}, err
	}
	return id, start, end, nil
}

func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	id, start, end, err := window(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok, err := h.availability.IsAvailable(r.Context(), id, start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, availabilityResponse{VehicleModelID: id, StartTime: start, EndTime: end, Available: ok})
}

func (h *Handler) CalculateCost(w http.ResponseWriter, r *http.Request) {
	id, start, end, err := window(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	quote, err := h.rentals.CalculateCost(r.Context(), id, start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

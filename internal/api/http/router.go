package http

import (
	"net/http"

	"evrental-backend/internal/security"
	"evrental-backend/internal/service"
	"evrental-backend/internal/storage"

	"github.com/gorilla/mux"
)

// Handler serves the rental API.
type Handler struct {
	rentals      service.RentalService
	payments     service.PaymentService
	availability service.AvailabilityService
	photos       *PhotoHandler
}

// Deps is everything the router needs.
type Deps struct {
	Rentals      service.RentalService
	Payments     service.PaymentService
	Availability service.AvailabilityService
	Storage      storage.StorageInterface
	Tokens       security.TokenManager
	Uploads      UploadLimits
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		rentals:      d.Rentals,
		payments:     d.Payments,
		availability: d.Availability,
		photos:       NewPhotoHandler(d.Storage, d.Uploads),
	}
}

// NewRouter registers every route under its security config name. The name
// decides whether the auth middleware demands a token.
func NewRouter(d Deps) *mux.Router {
	h := NewHandler(d)

	r := mux.NewRouter()
	r.Use(RequestID, RequestLogger, Recover, NewAuthMiddleware(d.Tokens).Handler)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErrorCode(w, http.StatusNotFound, "not_found", "route not found")
	})

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet).Name("Health")

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/vehicles/available", h.ListAvailableVehicles).Methods(http.MethodPost).Name("ListAvailableVehicles")
	api.HandleFunc("/vehicles/{id:[0-9]+}/availability", h.CheckAvailability).Methods(http.MethodGet).Name("CheckAvailability")
	api.HandleFunc("/vehicles/{id:[0-9]+}/cost", h.CalculateCost).Methods(http.MethodGet).Name("CalculateCost")

	api.HandleFunc("/rentals", h.CreateRental).Methods(http.MethodPost).Name("CreateRental")
	api.HandleFunc("/rentals", h.ListRentals).Methods(http.MethodGet).Name("ListRentals")
	api.HandleFunc("/rentals/{id:[0-9]+}", h.GetRental).Methods(http.MethodGet).Name("GetRental")
	api.HandleFunc("/rentals/{id:[0-9]+}/confirm", h.ConfirmRental).Methods(http.MethodPost).Name("ConfirmRental")
	api.HandleFunc("/rentals/{id:[0-9]+}/handover", h.HandoverRental).Methods(http.MethodPut).Name("HandoverRental")
	api.HandleFunc("/rentals/{id:[0-9]+}/return", h.ReturnRental).Methods(http.MethodPut).Name("ReturnRental")
	api.HandleFunc("/rentals/{id:[0-9]+}/cancel", h.CancelRental).Methods(http.MethodPost).Name("CancelRental")

	api.HandleFunc("/payments", h.InitiatePayment).Methods(http.MethodPost).Name("InitiatePayment")
	api.HandleFunc("/payments/callback", h.PaymentCallback).Methods(http.MethodGet, http.MethodPost).Name("PaymentCallback")
	api.HandleFunc("/payments/ipn", h.PaymentIPN).Methods(http.MethodGet).Name("PaymentIPN")

	api.HandleFunc("/photos", h.photos.HandleUpload).Methods(http.MethodPost).Name("UploadPhoto")
	api.HandleFunc("/files/{key:.+}", h.photos.HandleDownload).Methods(http.MethodGet).Name("DownloadFile")

	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

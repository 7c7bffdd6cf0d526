package service

import (
	"context"
	"errors"
	"time"

	"evrental-backend/internal/domain"
	"evrental-backend/internal/repository"
)

type availabilityService struct {
	vehicleRepo repository.VehicleRepository
}

func NewAvailabilityService(vehicleRepo repository.VehicleRepository) AvailabilityService {
	return &availabilityService{vehicleRepo: vehicleRepo}
}

func validateWindow(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return domain.Validationf("start and end time are required")
	}
	if !start.Before(end) {
		return domain.Validationf("start time must be before end time")
	}
	return nil
}

func (s *availabilityService) freeUnits(ctx context.Context, vehicleModelID int32, start, end time.Time) ([]domain.Unit, error) {
	units, err := s.vehicleRepo.ListUnits(ctx, vehicleModelID)
	if err != nil {
		return nil, err
	}
	booked, err := s.vehicleRepo.ListBookedWindows(ctx, vehicleModelID, start, end)
	if err != nil {
		return nil, err
	}
	return domain.FreeUnits(units, booked, start, end), nil
}

func (s *availabilityService) FindAvailableUnit(ctx context.Context, vehicleModelID int32, start, end time.Time) (*domain.Unit, error) {
	if err := validateWindow(start, end); err != nil {
		return nil, err
	}
	if _, err := s.vehicleRepo.GetModel(ctx, vehicleModelID); err != nil {
		return nil, err
	}
	free, err := s.freeUnits(ctx, vehicleModelID, start, end)
	if err != nil {
		return nil, err
	}
	if len(free) == 0 {
		return nil, domain.ErrNoUnitAvailable
	}
	return &free[0], nil
}

func (s *availabilityService) IsAvailable(ctx context.Context, vehicleModelID int32, start, end time.Time) (bool, error) {
	_, err := s.FindAvailableUnit(ctx, vehicleModelID, start, end)
	if errors.Is(err, domain.ErrNoUnitAvailable) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *availabilityService) ListAvailableVehicleModels(ctx context.Context, filter domain.VehicleFilter, start, end time.Time) ([]domain.AvailableVehicle, error) {
	if err := validateWindow(start, end); err != nil {
		return nil, err
	}
	models, err := s.vehicleRepo.ListModels(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := []domain.AvailableVehicle{}
	for _, m := range models {
		free, err := s.freeUnits(ctx, m.ID, start, end)
		if err != nil {
			return nil, err
		}
		if len(free) == 0 {
			continue
		}
		out = append(out, domain.AvailableVehicle{VehicleModel: m, AvailableUnits: len(free)})
	}
	return out, nil
}

package utils

import (
	"fmt"
	"math"
	"time"

	"evrental-backend/internal/domain"
)

const (
	day   = 24 * time.Hour
	minor = 100 // gateway amounts are major units x 100
)

// RentalDays returns the number of billable days in [start,end). Any partial
// day counts as a full day.
func RentalDays(start, end time.Time) (int64, error) {
	if !start.Before(end) {
		return 0, fmt.Errorf("end time must be after start time")
	}
	elapsed := end.Sub(start)
	days := int64(elapsed / day)
	if elapsed%day > 0 {
		days++
	}
	return days, nil
}

// DailyCost prices a rental at ratePerDay for every started day.
func DailyCost(ratePerDay int64, start, end time.Time) (int64, error) {
	if ratePerDay < 0 {
		return 0, fmt.Errorf("rate per day must not be negative")
	}
	days, err := RentalDays(start, end)
	if err != nil {
		return 0, err
	}
	return days * ratePerDay, nil
}

// ContractTotal sums rental fee, deposit and all extra fees.
func ContractTotal(rentalFee, deposit int64, extras []domain.ExtraFee) int64 {
	total := rentalFee + deposit
	for _, f := range extras {
		total += f.Amount
	}
	return total
}

// MaxGatewayAmount is the largest VND amount whose minor-unit form fits in an
// int64.
const MaxGatewayAmount = math.MaxInt64 / minor

// ToMinorUnits converts VND to the gateway's amount unit. Callers must keep
// amount within MaxGatewayAmount.
func ToMinorUnits(amount int64) int64 {
	return amount * minor
}

// FromMinorUnits converts a gateway amount back to VND. Amounts that are not a
// whole number of VND are rejected rather than rounded.
func FromMinorUnits(amount int64) (int64, error) {
	if amount%minor != 0 {
		return 0, fmt.Errorf("gateway amount %d is not a whole number of major units", amount)
	}
	return amount / minor, nil
}

// UsageDelta is what a rental consumed, measured at return. BatteryUsed is
// the handover level minus the return level and goes negative when the renter
// hands the car back with more charge than it left with.
type UsageDelta struct {
	DistanceKm    int32
	BatteryUsed   int32
	ReturnBattery int32
	RentalDays    int64
	LateBy        time.Duration
}

// HandoverBattery is the charge level the rental started with.
func (u UsageDelta) HandoverBattery() int32 {
	return u.ReturnBattery + u.BatteryUsed
}

// ExtraFeeStrategy computes return-time surcharges.
type ExtraFeeStrategy interface {
	ExtraFees(u UsageDelta) []domain.ExtraFee
}

// SurchargePolicy charges for distance over a daily allowance, for battery
// returned below a minimum level and for every started hour of late return.
// The battery minimum never exceeds the level the car was handed over at.
// A zero rate disables that component.
type SurchargePolicy struct {
	AllowanceKmPerDay    int32 `yaml:"allowance_km_per_day"`
	FeePerExtraKm        int64 `yaml:"fee_per_extra_km"`
	MinReturnBattery     int32 `yaml:"min_return_battery"`
	FeePerBatteryPercent int64 `yaml:"fee_per_battery_percent"`
	LateFeePerHour       int64 `yaml:"late_fee_per_hour"`
	LateGraceMinutes     int   `yaml:"late_grace_minutes"`
}

func (p SurchargePolicy) ExtraFees(u UsageDelta) []domain.ExtraFee {
	var fees []domain.ExtraFee

	if p.FeePerExtraKm > 0 {
		allowance := int64(p.AllowanceKmPerDay) * u.RentalDays
		if over := int64(u.DistanceKm) - allowance; over > 0 {
			fees = append(fees, domain.ExtraFee{
				Type:        domain.ExtraFeeDistance,
				Description: fmt.Sprintf("%d km over the %d km allowance", over, allowance),
				Amount:      over * p.FeePerExtraKm,
			})
		}
	}

	if p.FeePerBatteryPercent > 0 {
		required := p.MinReturnBattery
		if h := u.HandoverBattery(); h < required {
			required = h
		}
		if missing := required - u.ReturnBattery; missing > 0 {
			fees = append(fees, domain.ExtraFee{
				Type:        domain.ExtraFeeBattery,
				Description: fmt.Sprintf("returned at %d%%, %d%% below the required %d%%", u.ReturnBattery, missing, required),
				Amount:      int64(missing) * p.FeePerBatteryPercent,
			})
		}
	}

	if p.LateFeePerHour > 0 {
		late := u.LateBy - time.Duration(p.LateGraceMinutes)*time.Minute
		if late > 0 {
			hours := int64(late / time.Hour)
			if late%time.Hour > 0 {
				hours++
			}
			fees = append(fees, domain.ExtraFee{
				Type:        domain.ExtraFeeLate,
				Description: fmt.Sprintf("returned %d hour(s) late", hours),
				Amount:      hours * p.LateFeePerHour,
			})
		}
	}

	return fees
}

// config/security_config.go
package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Access token required
	SecurityStaff                       // Access token with a staff or admin role
)

// EndpointSecurityConfig maps named HTTP routes to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Public
	"Health":          SecurityPublic,
	"PaymentCallback": SecurityPublic, // authenticated by gateway signature
	"PaymentIPN":      SecurityPublic, // authenticated by gateway signature
	"DownloadFile":    SecurityPublic,

	// Vehicles - Access Protected
	"ListAvailableVehicles": SecurityAccess,
	"CheckAvailability":     SecurityAccess,
	"CalculateCost":         SecurityAccess,

	// Rentals - Access Protected
	"CreateRental": SecurityAccess,
	"ListRentals":  SecurityAccess,
	"GetRental":    SecurityAccess,
	"CancelRental": SecurityAccess,

	// Rentals - Staff Only
	"ConfirmRental":  SecurityStaff,
	"HandoverRental": SecurityStaff,
	"ReturnRental":   SecurityStaff,

	// Payments - Access Protected
	"InitiatePayment": SecurityAccess,

	// Photos - Access Protected
	"UploadPhoto": SecurityAccess,
}

// GetSecurityLevel returns the security level for a given route name
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to requiring a token for unknown routes
	return SecurityAccess
}

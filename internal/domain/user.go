package domain

type Role string

const (
	RoleAdmin  Role = "Admin"
	RoleStaff  Role = "Staff"
	RoleRenter Role = "Renter"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStaff || r == RoleRenter
}

// Actor is the authenticated caller, supplied per request by the identity
// layer.
type Actor struct {
	UserID int32 `json:"user_id"`
	Role   Role  `json:"role"`
}

// IsStaff reports whether the actor may act on other users' rentals.
func (a Actor) IsStaff() bool {
	return a.Role == RoleStaff || a.Role == RoleAdmin
}

// SystemActor is used by batch jobs.
var SystemActor = Actor{UserID: 0, Role: RoleAdmin}

// User is the subset of the user record the rental core needs for
// notifications.
type User struct {
	ID    int32  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone_number"`
}

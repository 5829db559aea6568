package app

// ServiceListRequest is the input for ListServices. Empty fields do not filter.
type ServiceListRequest struct {
	Search     string
	DeviceType string
	Status     string
	DateFrom   string // YYYY-MM-DD, received on or after
	DateTo     string // YYYY-MM-DD, received on or before
	Page       int
}

// CreateUserRequest is the input for CreateAdminUser.
type CreateUserRequest struct {
	Username string
	Email    string
	Password string
}

// Default credentials of the bootstrap admin account.
const (
	DefaultAdminUsername = "admin"
	DefaultAdminEmail    = "admin@robodigital.com"
	DefaultAdminPassword = "admin123"
)

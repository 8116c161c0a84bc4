package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Access token required
	SecurityAdmin                       // Access token carrying the admin role
)

const rentalServicePrefix = "/rental.v1.RentalService/"

// EndpointSecurityConfig maps methods to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	rentalServicePrefix + "HealthCheck": SecurityPublic,

	// Rental requests
	rentalServicePrefix + "CreateRentalRequest":  SecurityAccess,
	rentalServicePrefix + "ApproveRentalRequest": SecurityAccess,
	rentalServicePrefix + "RejectRentalRequest":  SecurityAccess,
	rentalServicePrefix + "CancelRental":         SecurityAccess,
	rentalServicePrefix + "InitiateReturn":       SecurityAccess,
	rentalServicePrefix + "GetRental":            SecurityAccess,
	rentalServicePrefix + "ListRentals":          SecurityAccess,
	rentalServicePrefix + "GetTimeline":          SecurityAccess,

	// Payments
	rentalServicePrefix + "SubmitPayment":        SecurityAccess,
	rentalServicePrefix + "SubmitOverduePayment": SecurityAccess,
	rentalServicePrefix + "VerifyPayment":        SecurityAdmin,
	rentalServicePrefix + "RejectPayment":        SecurityAdmin,
	rentalServicePrefix + "ProcessLenderPayment": SecurityAdmin,
	rentalServicePrefix + "ProcessDepositRefund": SecurityAdmin,

	// Handover and return
	rentalServicePrefix + "SubmitHandoverProof": SecurityAccess,
	rentalServicePrefix + "ConfirmReceipt":      SecurityAccess,
	rentalServicePrefix + "SubmitReturnProof":   SecurityAccess,
	rentalServicePrefix + "ConfirmReturn":       SecurityAccess,

	// Scheduling
	rentalServicePrefix + "ProposeSchedule": SecurityAccess,
	rentalServicePrefix + "SelectSchedule":  SecurityAccess,
	rentalServicePrefix + "ConfirmSchedule": SecurityAccess,
	rentalServicePrefix + "DeleteSchedule":  SecurityAccess,
	rentalServicePrefix + "ReportNoShow":    SecurityAccess,
	rentalServicePrefix + "ResolveNoShow":   SecurityAdmin,

	// Disputes
	rentalServicePrefix + "RaiseDispute":   SecurityAccess,
	rentalServicePrefix + "ReviewDispute":  SecurityAdmin,
	rentalServicePrefix + "ResolveDispute": SecurityAdmin,

	// Notifications
	rentalServicePrefix + "GetNotifications":     SecurityAccess,
	rentalServicePrefix + "MarkNotificationRead": SecurityAccess,
}

// GetSecurityLevel returns the security level for a given method
func GetSecurityLevel(method string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[method]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAdmin
}

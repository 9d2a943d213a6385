package models

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusCanceled  = "canceled"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusSuccess = "success"
	PaymentStatusFailed  = "failed"

	PaymentMethodKhalti = "khalti"
)

const (
	TaskStatusPending    = "pending"
	TaskStatusProcessing = "processing"
	TaskStatusRetry      = "retry"
	TaskStatusCompleted  = "completed"
	TaskStatusFailed     = "failed"
)

const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeFile  = "file"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	OTPPurposeLogin = "login"
	OTPPurposeReset = "reset"
)

const (
	// DefaultTimezone is the zone booking dates and times are interpreted in.
	DefaultTimezone = "Asia/Kathmandu"

	// DefaultConflictWindow is the lookback used by the slot conflict check.
	DefaultConflictWindow = 2 * 60 * 60 // seconds

	// OTPLength number of digits in a one-time code
	OTPLength = 6

	// MaxOTPAttempts wrong codes accepted before a pending OTP is discarded
	MaxOTPAttempts = 5

	// OTPTTL lifetime of a one-time code
	OTPTTL = 10 * 60 // seconds

	// PasswordHistorySize number of previous password hashes kept per user
	PasswordHistorySize = 5

	// MaxFailedLogins failed attempts before the account is locked
	MaxFailedLogins = 5

	// LockoutDuration lock period after too many failed logins
	LockoutDuration = 5 * 60 // seconds

	// PasswordMaxAgeDays password lifetime before a reset is required
	PasswordMaxAgeDays = 90

	// WorkerQueueSize size of the payment worker local queue
	WorkerQueueSize = 1000

	// DefaultPaginationSize page size for admin listings
	DefaultPaginationSize = 20

	// OTPRequestLimit OTP requests allowed per phone in OTPRequestWindow
	OTPRequestLimit = 3

	// OTPRequestWindow throttle window for OTP requests
	OTPRequestWindow = 10 * 60 // seconds

	// PresenceTTL lifetime of a presence entry in Redis
	PresenceTTL = 24 * 60 * 60 // seconds
)

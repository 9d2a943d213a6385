package models

import "time"

type ActivityLog struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	URL       string    `json:"url"`
	Method    string    `json:"method"`
	Role      string    `json:"role"`
	Status    int       `json:"status"`
	Time      time.Time `json:"time"`
	Device    string    `json:"device"`
	IPAddress string    `json:"ip_address"`
}

type Feedback struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Subject   string       `json:"subject"`
	Message   string       `json:"message"`
	Rating    int          `json:"rating"`
	CreatedAt time.Time    `json:"created_at"`
	User      *UserSummary `json:"user,omitempty"`
}

type Notification struct {
	ID        string    `json:"id"`
	Receiver  string    `json:"receiver"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is a stored chat message between two users.
type Message struct {
	ID         string       `json:"id"`
	SenderID   string       `json:"sender_id"`
	ReceiverID string       `json:"receiver_id"`
	Message    string       `json:"message"`
	Type       string       `json:"type"`
	CreatedAt  time.Time    `json:"timestamp"`
	Sender     *UserSummary `json:"sender,omitempty"`
	Receiver   *UserSummary `json:"receiver,omitempty"`
}

type DashboardStats struct {
	TotalUsers       int            `json:"total_users"`
	TotalBikes       int            `json:"total_bikes"`
	TotalBookings    int            `json:"total_bookings"`
	BookingsByStatus map[string]int `json:"bookings_by_status"`
}

package domain

import "time"

// Location is a member's last reported position. Heading and Accuracy
// stay nil when the client never sent them.
type Location struct {
	Lat       float64
	Lon       float64
	Heading   *float64
	Accuracy  *float64
	UpdatedAt time.Time
}

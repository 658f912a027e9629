// Package user defines the user account type.
package user

import "time"

// User is a registered account, identified by an opaque numeric ID
// assigned by the conversational transport. Users are never deleted.
type User struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
	VIP       bool // immutable after creation
	CreatedAt time.Time
}

// DisplayName returns a human-readable name for notifications.
func (u User) DisplayName() string {
	switch {
	case u.Username != "":
		return u.Username
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return "user"
	}
}

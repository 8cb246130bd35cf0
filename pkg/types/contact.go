package types

import "strings"

// GuestContact is the contact snapshot stored on orders placed without a
// registered account. It is captured at order time and never updated.
type GuestContact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// IsZero reports whether no contact details were provided.
func (c GuestContact) IsZero() bool {
	return strings.TrimSpace(c.Name) == "" && strings.TrimSpace(c.Email) == "" && strings.TrimSpace(c.Phone) == ""
}

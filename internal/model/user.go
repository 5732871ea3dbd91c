package model

import "github.com/google/uuid"

// User is keyed by (dataset UUID, int64 id) within its owning dataset.
// Exactly one user per dataset has IsMyself set.
type User struct {
	DatasetUUID   uuid.UUID
	ID            int64
	FirstName     string // empty means unset
	LastName      string
	Username      string
	PhoneNumbers  []string // ordered, as originally listed by the source
	IsMyself      bool
}

// PrettyName returns the best available human-facing name for the user,
// falling back through first/last name, username, and finally the empty
// string. Used by the Merge Executor when rewriting service-message
// member-name lists.
func (u User) PrettyName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	case u.Username != "":
		return u.Username
	default:
		return ""
	}
}

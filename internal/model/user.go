// Package model defines domain entities for the application.
package model

import "time"

// User is a registered principal. Folders and snippets reference it by ID.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	PasswordDigest string    `json:"-"` // Never serialize
	CreatedAt      time.Time `json:"created_at"`
}

// Public returns a copy of the user without the password digest.
func (u *User) Public() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.PasswordDigest = ""
	return &c
}

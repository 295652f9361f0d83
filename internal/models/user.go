// Package models contains data structures for the application's domain models.
package models

import "time"

// User is the identity record for an account. Its profile row is written in
// the same atomic unit at registration, so a committed user always has
// exactly one profile.
type User struct {
	ID             string       `gorm:"primaryKey" json:"id"`
	Email          string       `gorm:"uniqueIndex:users_email_unique;not null" json:"email"`
	HashedPassword string       `gorm:"not null" json:"-"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
	Profile        *UserProfile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
}

// UserProfile is the 1:1 public extension of a user, cascade-deleted with it.
type UserProfile struct {
	UserID    string    `gorm:"primaryKey" json:"user_id"`
	Username  string    `gorm:"uniqueIndex:user_profiles_username_unique;not null" json:"username"`
	Bio       *string   `json:"bio"`
	AvatarURL *string   `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MaxBioLength is the storage limit for profile bios, in characters.
const MaxBioLength = 30

// ProfileChanges is a sparse update of profile fields. Absent fields are left
// untouched; cleared fields are set to NULL.
type ProfileChanges struct {
	Username  Field[string]
	Bio       Field[string]
	AvatarURL Field[string]
}

// Empty reports whether no field was provided at all.
func (c ProfileChanges) Empty() bool {
	return !c.Username.Present() && !c.Bio.Present() && !c.AvatarURL.Present()
}

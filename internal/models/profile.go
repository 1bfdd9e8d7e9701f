package models

import (
	"time"

	"github.com/google/uuid"
)

// ProfileKind distinguishes the two sides of the marketplace.
type ProfileKind string

const (
	ProfileKindCoach   ProfileKind = "coach"
	ProfileKindAthlete ProfileKind = "athlete"
)

// Profile is the onboarding record of a user. A user without one has not finished onboarding.
type Profile struct {
	ID          uuid.UUID   `json:"id"`
	UserID      uuid.UUID   `json:"user_id"`
	Kind        ProfileKind `json:"kind"`
	DisplayName string      `json:"display_name"`
	Bio         string      `json:"bio,omitempty"`
	Sport       string      `json:"sport,omitempty"`
	AvatarKey   string      `json:"avatar_key,omitempty"`
	AvatarURL   string      `json:"avatar_url,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// ProfilePublic is the subset of a profile any authenticated caller may read.
type ProfilePublic struct {
	ID          uuid.UUID   `json:"id"`
	Kind        ProfileKind `json:"kind"`
	DisplayName string      `json:"display_name"`
	Bio         string      `json:"bio,omitempty"`
	Sport       string      `json:"sport,omitempty"`
	AvatarURL   string      `json:"avatar_url,omitempty"`
}

// ToPublic converts Profile to ProfilePublic.
func (p *Profile) ToPublic() ProfilePublic {
	return ProfilePublic{
		ID:          p.ID,
		Kind:        p.Kind,
		DisplayName: p.DisplayName,
		Bio:         p.Bio,
		Sport:       p.Sport,
		AvatarURL:   p.AvatarURL,
	}
}

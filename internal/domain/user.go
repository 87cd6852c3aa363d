package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/lib/pq"
)

type UserRole string

const (
	RoleUser      UserRole = "USER"
	RoleHelper    UserRole = "HELPER"
	RoleAuthority UserRole = "AUTHORITY"
)

// User is the profile document of a community member. It carries identity,
// gamification state and the safety data used during an SOS.
type User struct {
	ID                string         `json:"id" db:"id"`
	Email             *string        `json:"email,omitempty" db:"email"`
	Name              string         `json:"name" db:"name"`
	PhotoURL          string         `json:"photo_url" db:"photo_url"`
	Role              UserRole       `json:"role" db:"role"`
	Phone             string         `json:"phone" db:"phone"`
	IsPhoneVerified   bool           `json:"is_phone_verified" db:"is_phone_verified"`
	Score             int            `json:"score" db:"score"`
	Rank              string         `json:"rank" db:"rank"`
	TrustRating       float64        `json:"trust_rating" db:"trust_rating"`
	Badges            pq.StringArray `json:"badges" db:"badges"`
	Followers         int            `json:"followers" db:"followers"`
	Following         int            `json:"following" db:"following"`
	IsAvailable       bool           `json:"is_available" db:"is_available"`
	LocationLat       *float64       `json:"location_lat" db:"location_lat"`
	LocationLng       *float64       `json:"location_lng" db:"location_lng"`
	LastActive        *time.Time     `json:"last_active,omitempty" db:"last_active"`
	BlockedUsers      pq.StringArray `json:"blocked_users" db:"blocked_users"`
	EmergencyContacts Contacts       `json:"emergency_contacts" db:"emergency_contacts"`
	SafeLocations     SafeLocations  `json:"safe_locations" db:"safe_locations"`
	HelpCount         int            `json:"help_count" db:"help_count"`
	PasswordHash      *string        `json:"-" db:"password_hash"`
	CreatedAt         time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at" db:"updated_at"`

	// IsOfflineMode is set on profiles served from the simulated dataset.
	IsOfflineMode bool `json:"is_offline_mode,omitempty" db:"-"`
}

// Location returns the last known coordinate of the user, if any.
func (u *User) Location() (GeoPoint, bool) {
	if u.LocationLat == nil || u.LocationLng == nil {
		return GeoPoint{}, false
	}
	return GeoPoint{Lat: *u.LocationLat, Lng: *u.LocationLng}, true
}

func (u *User) HasBlocked(userID string) bool {
	for _, id := range u.BlockedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// PublicProfile is what other members see of a user. Contact details,
// coordinates, safe locations and the block list stay private.
type PublicProfile struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	PhotoURL      string   `json:"photo_url"`
	Role          UserRole `json:"role"`
	Score         int      `json:"score"`
	Rank          string   `json:"rank"`
	TrustRating   float64  `json:"trust_rating"`
	Badges        []string `json:"badges"`
	Followers     int      `json:"followers"`
	Following     int      `json:"following"`
	HelpCount     int      `json:"help_count"`
	IsAvailable   bool     `json:"is_available"`
	IsOfflineMode bool     `json:"is_offline_mode,omitempty"`
}

func (u *User) Public() PublicProfile {
	badges := []string(u.Badges)
	if badges == nil {
		badges = []string{}
	}
	return PublicProfile{
		ID:            u.ID,
		Name:          u.Name,
		PhotoURL:      u.PhotoURL,
		Role:          u.Role,
		Score:         u.Score,
		Rank:          u.Rank,
		TrustRating:   u.TrustRating,
		Badges:        badges,
		Followers:     u.Followers,
		Following:     u.Following,
		HelpCount:     u.HelpCount,
		IsAvailable:   u.IsAvailable,
		IsOfflineMode: u.IsOfflineMode,
	}
}

// PublicProfiles maps users to their public view.
func PublicProfiles(users []*User) []PublicProfile {
	out := make([]PublicProfile, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out
}

const DefaultUserName = "Guardian"

// AvatarURL builds the generated avatar used when no photo is known.
func AvatarURL(name string) string {
	return fmt.Sprintf("https://ui-avatars.com/api/?name=%s&background=random", url.QueryEscape(name))
}

// AuthIdentity is what the identity provider tells us about a signed-in user.
type AuthIdentity struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
	PhoneNumber string
}

// UserPatch is a partial profile update. Nil fields are left untouched.
type UserPatch struct {
	Name          *string
	PhotoURL      *string
	Phone         *string
	Role          *UserRole
	IsAvailable   *bool
	SafeLocations *SafeLocations
}

func (p UserPatch) IsEmpty() bool {
	return p.Name == nil && p.PhotoURL == nil && p.Phone == nil &&
		p.Role == nil && p.IsAvailable == nil && p.SafeLocations == nil
}

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p GeoPoint) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

type Contact struct {
	ID       string `json:"id" validate:"required"`
	Name     string `json:"name" validate:"required,max=100"`
	Phone    string `json:"phone" validate:"required,max=32"`
	Relation string `json:"relation" validate:"max=50"`
}

type SafeLocation struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Contacts is stored as a JSONB column.
type Contacts []Contact

func (c Contacts) Value() (driver.Value, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c)
}

func (c *Contacts) Scan(src interface{}) error {
	return scanJSON(src, c)
}

// SafeLocations is stored as a JSONB column.
type SafeLocations []SafeLocation

func (s SafeLocations) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

func (s *SafeLocations) Scan(src interface{}) error {
	return scanJSON(src, s)
}

func scanJSON(src interface{}, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported json column type %T", src)
	}
}

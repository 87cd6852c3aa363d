// Package mock holds the canned dataset served while the backend is
// compromised. Every function returns a fresh copy so callers may mutate
// the result.
package mock

import (
	"fmt"
	"time"

	"github.com/gdugdh24/rakshak-backend/internal/domain"
)

func baseUser() domain.User {
	return domain.User{
		ID:              "u123",
		Name:            "Arjun Kumar",
		Role:            domain.RoleUser,
		Phone:           "+91 98765 43210",
		IsPhoneVerified: true,
		Score:           1250,
		Rank:            "Silver Helper",
		TrustRating:     4.8,
		Badges:          []string{"first_responder", "community_hero"},
		Followers:       42,
		Following:       15,
		IsAvailable:     true,
		BlockedUsers:    []string{},
		EmergencyContacts: domain.Contacts{
			{ID: "c1", Name: "Mom", Phone: "+91 98765 00001", Relation: "Parent"},
			{ID: "c2", Name: "Rohan (Brother)", Phone: "+91 98765 00002", Relation: "Sibling"},
		},
		SafeLocations: domain.SafeLocations{
			{ID: "l1", Name: "Home", Address: "Connaught Place, New Delhi"},
			{ID: "l2", Name: "Office", Address: "Cyber City, Gurugram"},
		},
		HelpCount:     12,
		IsOfflineMode: true,
	}
}

// Profile returns the simulated profile for an identity.
func Profile(identity domain.AuthIdentity) *domain.User {
	u := baseUser()
	u.ID = identity.UID
	if u.ID == "" {
		u.ID = "mock_uid"
	}
	u.Name = identity.DisplayName
	if u.Name == "" {
		u.Name = "Guardian (Simulated)"
	}
	u.PhotoURL = identity.PhotoURL
	if u.PhotoURL == "" {
		initial := identity.DisplayName
		if initial == "" {
			initial = "G"
		}
		u.PhotoURL = domain.AvatarURL(initial)
	}
	if identity.Email != "" {
		email := identity.Email
		u.Email = &email
	}
	return &u
}

// User returns the simulated profile for a known id.
func User(id string) *domain.User {
	return Profile(domain.AuthIdentity{UID: id})
}

func Leaderboard() []*domain.User {
	entries := []struct {
		id, name, rank string
		score          int
	}{
		{"l1", "Kabir Singh", "Platinum Guardian", 8400},
		{"l2", "Priya Verma", "Platinum Guardian", 5200},
		{"l3", "Rohan Gupta", "Gold Helper", 3100},
	}
	out := make([]*domain.User, 0, len(entries))
	for _, e := range entries {
		u := baseUser()
		u.ID, u.Name, u.Rank, u.Score = e.id, e.name, e.rank, e.score
		u.PhotoURL = domain.AvatarURL(e.name)
		out = append(out, &u)
	}
	return out
}

func CommunityUsers() []*domain.User {
	entries := []struct {
		id, name, rank string
		score          int
	}{
		{"u2", "Sarah Khan", "Gold Helper", 3200},
		{"u4", "Dr. Emily R.", "Platinum Guardian", 5000},
	}
	out := make([]*domain.User, 0, len(entries))
	for _, e := range entries {
		u := baseUser()
		u.ID, u.Name, u.Rank, u.Score = e.id, e.name, e.rank, e.score
		u.Role = domain.RoleHelper
		u.PhotoURL = domain.AvatarURL(e.name)
		out = append(out, &u)
	}
	return out
}

func Following() []domain.Connection {
	return []domain.Connection{
		{ID: "h1", Name: "Sarah Khan", Role: "Platinum Guardian", Score: 8200, IsPriority: true, Avatar: "https://i.pravatar.cc/150?u=sarah", TrustRating: 99},
		{ID: "h2", Name: "Rahul V.", Role: "Gold Helper", Score: 4500, IsPriority: false, Avatar: "https://i.pravatar.cc/150?u=rahul", TrustRating: 96},
		{ID: "h4", Name: "Dr. Emily R.", Role: "Medical Expert", Score: 12000, IsPriority: true, Avatar: "https://i.pravatar.cc/150?u=emily", TrustRating: 100},
	}
}

func Followers() []domain.Connection {
	return []domain.Connection{
		{ID: "u201", Name: "Kabir Singh", Role: "Silver Helper", Score: 2100, Avatar: "https://i.pravatar.cc/150?u=kabir", TrustRating: 94},
		{ID: "u202", Name: "Priya Verma", Role: "Bronze Helper", Score: 450, Avatar: "https://i.pravatar.cc/150?u=priya", TrustRating: 98},
		{ID: "u203", Name: "Sneha Rao", Role: "Gold Helper", Score: 3800, Avatar: "https://i.pravatar.cc/150?u=sneha", TrustRating: 97},
		{ID: "u204", Name: "Amit J.", Role: "Silver Helper", Score: 1850, Avatar: "https://i.pravatar.cc/150?u=amit", TrustRating: 95},
	}
}

func CommunityStats() domain.CommunityStats {
	return domain.CommunityStats{
		TotalLivesImpacted: 14205,
		ActiveHelpers:      850,
		AvgResponseTime:    "3.2m",
		SafetyIndex:        "94%",
	}
}

// Emergency returns a simulated session for a requester. Its id carries the
// mock prefix so later accept/deny/resolve calls skip persistence.
func Emergency(requester *domain.User, at domain.GeoPoint, now time.Time) *domain.EmergencySession {
	s := &domain.EmergencySession{
		ID:          fmt.Sprintf("%semergency_id_%d", domain.MockEmergencyPrefix, now.UnixMilli()),
		Lat:         at.Lat,
		Lng:         at.Lng,
		Status:      domain.StatusRequested,
		Type:        domain.TypeUncertain,
		Severity:    domain.SeverityCritical,
		Active:      true,
		StartTime:   now,
		IsSimulated: true,
	}
	if requester != nil {
		s.UserID = requester.ID
		s.UserName = requester.Name
		s.UserPhone = requester.Phone
	}
	return s
}

package domain

type BadgeCategory string

const (
	BadgeSpeed     BadgeCategory = "Speed"
	BadgeCommunity BadgeCategory = "Community"
	BadgeElite     BadgeCategory = "Elite"
)

// Badge is a static catalog entry. Earned is filled per user.
type Badge struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Icon        string        `json:"icon"`
	Category    BadgeCategory `json:"category"`
	Description string        `json:"description"`
	Progress    int           `json:"progress"`
	Target      int           `json:"target"`
	Earned      bool          `json:"earned"`
}

var BadgeCatalog = []Badge{
	{ID: "first_responder", Name: "First Responder", Icon: "Zap", Category: BadgeSpeed, Description: "Responded in under 60s", Progress: 100, Target: 100},
	{ID: "life_saver", Name: "Life Saver", Icon: "Heart", Category: BadgeElite, Description: "Successfully resolved a Critical SOS", Progress: 1, Target: 5},
	{ID: "night_guardian", Name: "Night Guardian", Icon: "Moon", Category: BadgeElite, Description: "Assisted between 12 AM - 5 AM", Progress: 2, Target: 5},
	{ID: "community_hero", Name: "Community Hero", Icon: "Shield", Category: BadgeCommunity, Description: "Maintained 95%+ Trust Rating", Progress: 50, Target: 50},
	{ID: "speed_demon", Name: "Speed Demon", Icon: "Timer", Category: BadgeSpeed, Description: "Arrive at scene in < 3 mins", Progress: 3, Target: 10},
	{ID: "unbreakable", Name: "Unbreakable", Icon: "Gem", Category: BadgeElite, Description: "Complete 20 rescues without failure", Progress: 8, Target: 20},
}

// BadgesFor cross-references the catalog with the earned badge ids.
func BadgesFor(earned []string) []Badge {
	set := make(map[string]bool, len(earned))
	for _, id := range earned {
		set[id] = true
	}
	out := make([]Badge, len(BadgeCatalog))
	for i, b := range BadgeCatalog {
		b.Earned = set[b.ID]
		out[i] = b
	}
	return out
}

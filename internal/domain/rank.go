package domain

type RankThreshold struct {
	Min  int    `json:"min"`
	Name string `json:"name"`
}

// RankThresholds is ordered by ascending minimum score.
var RankThresholds = []RankThreshold{
	{Min: 0, Name: "Bronze Helper"},
	{Min: 500, Name: "Silver Helper"},
	{Min: 2000, Name: "Gold Helper"},
	{Min: 5000, Name: "Platinum Helper"},
}

const DefaultRank = "Bronze Helper"

// Points granted by the dispatch flow.
const (
	PointsAcceptSOS    = 50
	PointsFastArrival  = 100
	PointsResolveSOS   = 200
	PointsCriticalHelp = 500
)

// RankFor returns the highest rank whose threshold does not exceed score.
func RankFor(score int) string {
	rank := RankThresholds[0].Name
	for _, t := range RankThresholds {
		if score >= t.Min {
			rank = t.Name
		}
	}
	return rank
}

// rankLevel returns the index of rank in RankThresholds, or -1 for names
// outside the table.
func rankLevel(rank string) int {
	for i, t := range RankThresholds {
		if t.Name == rank {
			return i
		}
	}
	return -1
}

// PromoteRank returns the rank for score, keeping current when it is
// already higher.
func PromoteRank(current string, score int) string {
	next := RankFor(score)
	if rankLevel(next) < rankLevel(current) {
		return current
	}
	return next
}

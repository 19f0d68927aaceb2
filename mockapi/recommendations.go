package mockapi

import (
	"context"
	"hash/fnv"
	"sort"
)

// Recommendation is one card on the dashboard.
type Recommendation struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Reason string  `json:"reason"`
	Score  float64 `json:"score"`
}

type RecommendationList struct {
	Items []Recommendation `json:"items"`
}

// RecommendationSource produces recommendations for a user.
type RecommendationSource interface {
	For(ctx context.Context, userID string) ([]Recommendation, error)
}

// StaticRecommendations ranks a fixed catalogue per user, so every user sees
// a stable but different order.
type StaticRecommendations struct {
	Catalogue []Recommendation
	Limit     int
}

func DefaultRecommendations() *StaticRecommendations {
	return &StaticRecommendations{
		Limit: 5,
		Catalogue: []Recommendation{
			{ID: "rec-latency", Title: "Review p99 latency", Reason: "Latency rose 12% this week"},
			{ID: "rec-alerts", Title: "Tune noisy alerts", Reason: "3 alerts fired more than 20 times"},
			{ID: "rec-costs", Title: "Right-size idle instances", Reason: "4 instances under 5% CPU"},
			{ID: "rec-backups", Title: "Verify backup restores", Reason: "Last restore test was 40 days ago"},
			{ID: "rec-deps", Title: "Update dependencies", Reason: "7 modules have security fixes"},
			{ID: "rec-slo", Title: "Set an SLO for checkout", Reason: "Checkout has no error budget"},
			{ID: "rec-dash", Title: "Archive unused dashboards", Reason: "12 dashboards not viewed in 90 days"},
		},
	}
}

func (s *StaticRecommendations) For(_ context.Context, userID string) ([]Recommendation, error) {
	out := make([]Recommendation, len(s.Catalogue))
	for i, rec := range s.Catalogue {
		h := fnv.New32a()
		_, _ = h.Write([]byte(userID + "/" + rec.ID))
		rec.Score = float64(h.Sum32()%1000) / 1000
		out[i] = rec
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if s.Limit > 0 && len(out) > s.Limit {
		out = out[:s.Limit]
	}
	return out, nil
}

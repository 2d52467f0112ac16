package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/ecoquest/eco-explorer-hub/internal/domain/learner"
)

// profileDocument is the stored representation of a learner profile.
// Field names match the documents written by the original browser client,
// so existing exports can be imported as-is.
type profileDocument struct {
	ID                       string         `json:"id"`
	Name                     string         `json:"name"`
	Points                   int            `json:"points"`
	Badges                   []string       `json:"badges"`
	CompletedModules         []string       `json:"completedModules"`
	ModuleScores             map[string]int `json:"moduleScores"`
	DailyChallengesCompleted []string       `json:"dailyChallengesCompleted"`
	StreakDays               int            `json:"streakDays"`
	LastActiveDate           string         `json:"lastActiveDate"`
	TreesPlanted             int            `json:"treesPlanted"`
	PlasticReduced           int            `json:"plasticReduced"`
	EnergySaved              int            `json:"energySaved"`
}

// EncodeProfile serializes the whole profile as one JSON document.
func EncodeProfile(p *learner.Profile) ([]byte, error) {
	doc := profileDocument{
		ID:                       p.ID,
		Name:                     p.Name,
		Points:                   p.Points,
		Badges:                   nonNil(p.Badges),
		CompletedModules:         nonNil(p.CompletedModules),
		ModuleScores:             p.ModuleScores,
		DailyChallengesCompleted: nonNil(p.DailyChallengesCompleted),
		StreakDays:               p.StreakDays,
		LastActiveDate:           p.LastActiveDate,
		TreesPlanted:             p.Impact.TreesPlanted,
		PlasticReduced:           p.Impact.PlasticReduced,
		EnergySaved:              p.Impact.EnergySaved,
	}
	if doc.ModuleScores == nil {
		doc.ModuleScores = map[string]int{}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	return data, nil
}

// DecodeProfile parses a stored document. Missing fields decode as zero
// values and unknown fields are ignored; callers run Profile.Normalize
// afterwards. Invalid JSON or a mistyped field is an error.
func DecodeProfile(data []byte) (*learner.Profile, error) {
	var doc profileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}

	return &learner.Profile{
		ID:                       doc.ID,
		Name:                     doc.Name,
		Points:                   doc.Points,
		Badges:                   doc.Badges,
		CompletedModules:         doc.CompletedModules,
		ModuleScores:             doc.ModuleScores,
		DailyChallengesCompleted: doc.DailyChallengesCompleted,
		StreakDays:               doc.StreakDays,
		LastActiveDate:           doc.LastActiveDate,
		Impact: learner.Impact{
			TreesPlanted:   doc.TreesPlanted,
			PlasticReduced: doc.PlasticReduced,
			EnergySaved:    doc.EnergySaved,
		},
	}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

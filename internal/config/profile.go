package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Profile bundles the per-bot personality constants: branch
// probabilities, decision thresholds and the seed premises file.
type Profile struct {
	ID           string `json:"id"`
	PremisesPath string `json:"premises_path"`

	// Branch probabilities.
	PDodge1 float64 `json:"p_dodge1"`
	PDodge2 float64 `json:"p_dodge2"`
	PConfab float64 `json:"p_confab"`

	// Decision thresholds.
	MinNonsenseThreshold float64 `json:"min_nonsense_threshold"`
	PQARelThreshold      float64 `json:"pqa_rel_threshold"`

	// Smalltalk second-reply generation exists in the engine but stays
	// off: it consistently lost to the main ranker in evaluation.
	EnableSmalltalk bool `json:"enable_smalltalk"`
}

func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}

	// Fields absent from the file keep their defaults.
	p := DefaultProfile()
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	return p, nil
}

func DefaultProfile() *Profile {
	return &Profile{
		ID:                   "govorun",
		PDodge1:              0.1,
		PDodge2:              0.5,
		PConfab:              0.7,
		MinNonsenseThreshold: 0.50,
		PQARelThreshold:      0.80,
	}
}

package feed

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Recommendation is a curated feed a front end can offer for one-click
// subscription. Adding one goes through the regular feed add path.
type Recommendation struct {
	ID    string `yaml:"id" json:"id"`
	Title string `yaml:"title" json:"title"`
	URL   string `yaml:"url" json:"url"`
}

// LoadRecommendations reads a curated feed list from a YAML file. A missing
// file is not an error; the recommendation surface is optional.
func LoadRecommendations(path string) ([]Recommendation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read recommendations file: %w", err)
	}

	var recommendations []Recommendation
	if err := yaml.Unmarshal(data, &recommendations); err != nil {
		return nil, fmt.Errorf("failed to parse recommendations YAML: %w", err)
	}

	for i, rec := range recommendations {
		if rec.ID == "" || rec.URL == "" {
			return nil, fmt.Errorf("recommendation at index %d must have an id and a url", i)
		}
	}

	return recommendations, nil
}

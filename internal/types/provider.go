package types

import "strings"

// Provider is one configured AI backend from the settings catalog.
type Provider struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Type    string          `json:"type,omitempty"`
	BaseURL string          `json:"base_url,omitempty"`
	APIKey  string          `json:"api_key,omitempty"`
	Enabled *bool           `json:"enabled,omitempty"`
	Models  []ProviderModel `json:"models"`
}

type ProviderModel struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ModelsOfType returns the model names tagged with modelType
// (text, image, video). Models without a type count as image models.
func (p Provider) ModelsOfType(modelType string) []string {
	modelType = strings.ToLower(strings.TrimSpace(modelType))
	out := make([]string, 0, len(p.Models))
	for _, model := range p.Models {
		kind := strings.ToLower(strings.TrimSpace(model.Type))
		if kind == "" {
			kind = "image"
		}
		if kind == modelType {
			out = append(out, model.Name)
		}
	}
	return out
}

// IsEnabled treats a missing flag as enabled.
func (p Provider) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

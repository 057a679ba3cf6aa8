// Package providers maps generation kinds to the provider and model the
// user picked for them, and checks those picks against the backend catalog.
package providers

import (
	"fmt"
	"strings"

	"storyboard/internal/types"
)

// Role is the genOptions pair a generation kind draws its model from.
type Role string

const (
	RoleText   Role = "text"
	RoleImage  Role = "image"
	RoleFusion Role = "fusion"
	RoleVideo  Role = "video"
)

// ModelType is the catalog model type the role's models are tagged with.
func (r Role) ModelType() string {
	switch r {
	case RoleText:
		return "text"
	case RoleVideo:
		return "video"
	default:
		return "image"
	}
}

type Definition struct {
	Kind  types.GenerationKind
	Label string
	Role  Role
	Async bool
}

var registry = []Definition{
	{Kind: types.GenerationAnalyzeScript, Label: "analyze script", Role: RoleText},
	{Kind: types.GenerationAnalyzeSeries, Label: "analyze series", Role: RoleText},
	{Kind: types.GenerationScriptContinuation, Label: "continue script", Role: RoleText},
	{Kind: types.GenerationCharacterList, Label: "character list", Role: RoleText},
	{Kind: types.GenerationCharacterViews, Label: "character views", Role: RoleImage},
	{Kind: types.GenerationScenePrompt, Label: "scene prompt", Role: RoleText},
	{Kind: types.GenerationSceneImage, Label: "scene image", Role: RoleImage},
	{Kind: types.GenerationFusionPrompt, Label: "fusion prompt", Role: RoleText},
	{Kind: types.GenerationFusionImage, Label: "fusion image", Role: RoleFusion},
	{Kind: types.GenerationFusionVideo, Label: "fusion video", Role: RoleVideo},
	{Kind: types.GenerationGridPrompt, Label: "grid prompt", Role: RoleText},
	{Kind: types.GenerationGridImage, Label: "grid image", Role: RoleImage},
	{Kind: types.GenerationElementImage, Label: "element image", Role: RoleImage},
}

var registryByKind = buildByKind(registry)

func Normalize(kind string) types.GenerationKind {
	return types.GenerationKind(strings.ToLower(strings.TrimSpace(kind)))
}

func All() []Definition {
	return append([]Definition{}, registry...)
}

func Lookup(kind string) (Definition, bool) {
	def, ok := registryByKind[Normalize(kind)]
	return def, ok
}

// Selection is the provider and model sent with a generation request.
// Empty fields let the backend fall back to its own default.
type Selection struct {
	ProviderID string
	ModelName  string
}

func (s Selection) Empty() bool {
	return s.ProviderID == "" && s.ModelName == ""
}

func SelectionFor(def Definition, opts types.GenOptions) Selection {
	switch def.Role {
	case RoleText:
		return Selection{ProviderID: opts.TextProviderID, ModelName: opts.TextModelName}
	case RoleFusion:
		return Selection{ProviderID: opts.FusionProviderID, ModelName: opts.FusionModelName}
	case RoleVideo:
		return Selection{ProviderID: opts.VideoProviderID, ModelName: opts.VideoModelName}
	default:
		return Selection{ProviderID: opts.ImageProviderID, ModelName: opts.ImageModelName}
	}
}

// Apply fills provider_id and model_name in body unless the caller already
// set them.
func (s Selection) Apply(body map[string]any) {
	if body == nil {
		return
	}
	if _, ok := body["provider_id"]; !ok && s.ProviderID != "" {
		body["provider_id"] = s.ProviderID
	}
	if _, ok := body["model_name"]; !ok && s.ModelName != "" {
		body["model_name"] = s.ModelName
	}
}

// Validate checks the selection against the provider catalog: the provider
// must exist and be enabled, and must offer the model for the role.
func Validate(def Definition, sel Selection, catalog []types.Provider) error {
	if sel.ProviderID == "" {
		return nil
	}
	for _, provider := range catalog {
		if provider.ID != sel.ProviderID {
			continue
		}
		if !provider.IsEnabled() {
			return fmt.Errorf("provider %s is disabled", sel.ProviderID)
		}
		if sel.ModelName == "" {
			return nil
		}
		models := provider.ModelsOfType(def.Role.ModelType())
		for _, model := range models {
			if model == sel.ModelName {
				return nil
			}
		}
		return fmt.Errorf("provider %s has no %s model %q (have: %s)",
			sel.ProviderID, def.Role.ModelType(), sel.ModelName, strings.Join(models, ", "))
	}
	return fmt.Errorf("unknown provider %q", sel.ProviderID)
}

func buildByKind(defs []Definition) map[types.GenerationKind]Definition {
	out := make(map[types.GenerationKind]Definition, len(defs))
	for _, def := range defs {
		def.Async = def.Kind.Async()
		out[def.Kind] = def
	}
	return out
}

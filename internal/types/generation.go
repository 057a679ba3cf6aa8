package types

import "time"

// GenerationSession describes the blocking operation currently shown in the
// overlay. The cancellation handle lives in the controller, not here.
type GenerationSession struct {
	Active    bool      `json:"active"`
	Title     string    `json:"title"`
	SubText   string    `json:"sub_text"`
	StartedAt time.Time `json:"started_at,omitempty"`
	Seq       uint64    `json:"seq"`
}

// GenerationKind names a generation endpoint on the backend.
type GenerationKind string

const (
	GenerationAnalyzeScript      GenerationKind = "analyze_script"
	GenerationAnalyzeSeries      GenerationKind = "analyze_series"
	GenerationScriptContinuation GenerationKind = "script_continuation"
	GenerationCharacterList      GenerationKind = "character_list"
	GenerationCharacterViews     GenerationKind = "character_views"
	GenerationScenePrompt        GenerationKind = "scene_prompt"
	GenerationSceneImage         GenerationKind = "scene_image"
	GenerationFusionPrompt       GenerationKind = "fusion_prompt"
	GenerationFusionImage        GenerationKind = "fusion_image"
	GenerationFusionVideo        GenerationKind = "fusion_video"
	GenerationGridPrompt         GenerationKind = "grid_prompt"
	GenerationGridImage          GenerationKind = "grid_image"
	GenerationElementImage       GenerationKind = "element_image"
)

var asyncGenerationKinds = map[GenerationKind]struct{}{
	GenerationCharacterViews: {},
	GenerationScenePrompt:    {},
	GenerationSceneImage:     {},
	GenerationFusionPrompt:   {},
	GenerationFusionImage:    {},
	GenerationFusionVideo:    {},
	GenerationGridImage:      {},
}

var syncGenerationKinds = map[GenerationKind]struct{}{
	GenerationAnalyzeScript:      {},
	GenerationAnalyzeSeries:      {},
	GenerationScriptContinuation: {},
	GenerationCharacterList:      {},
	GenerationGridPrompt:         {},
	GenerationElementImage:       {},
}

// Async reports whether the backend queues this kind as a task instead of
// answering inline.
func (k GenerationKind) Async() bool {
	_, ok := asyncGenerationKinds[k]
	return ok
}

func (k GenerationKind) Valid() bool {
	if k.Async() {
		return true
	}
	_, ok := syncGenerationKinds[k]
	return ok
}

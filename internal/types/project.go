package types

import (
	"bytes"
	"encoding/json"
)

type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	SeriesID    string `json:"series_id,omitempty"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

type Character struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

type Shot struct {
	ID          string     `json:"id"`
	Scene       string     `json:"scene,omitempty"`
	ShotNumber  FlexString `json:"shot_number,omitempty"`
	Description string     `json:"description,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	VideoURL    string     `json:"video_url,omitempty"`
}

type Fusion struct {
	ID          string `json:"id"`
	ShotID      string `json:"shot_id,omitempty"`
	Prompt      string `json:"fusion_prompt,omitempty"`
	ImageURL    string `json:"result_image,omitempty"`
	VideoURL    string `json:"video_url,omitempty"`
	EndFrameURL string `json:"end_frame_image,omitempty"`
}

// Collection names a per-project list held by the working set.
type Collection string

const (
	CollectionProject    Collection = "project"
	CollectionCharacters Collection = "characters"
	CollectionShots      Collection = "shots"
	CollectionFusions    Collection = "fusions"
)

type LoadingState struct {
	Project    bool `json:"project"`
	Characters bool `json:"characters"`
	Shots      bool `json:"shots"`
	Fusions    bool `json:"fusions"`
}

func (l *LoadingState) Set(c Collection, value bool) {
	switch c {
	case CollectionProject:
		l.Project = value
	case CollectionCharacters:
		l.Characters = value
	case CollectionShots:
		l.Shots = value
	case CollectionFusions:
		l.Fusions = value
	}
}

func (l LoadingState) Get(c Collection) bool {
	switch c {
	case CollectionProject:
		return l.Project
	case CollectionCharacters:
		return l.Characters
	case CollectionShots:
		return l.Shots
	case CollectionFusions:
		return l.Fusions
	default:
		return false
	}
}

func (l LoadingState) Any() bool {
	return l.Project || l.Characters || l.Shots || l.Fusions
}

// WorkingSet is the in-memory data of the currently open project.
type WorkingSet struct {
	ProjectID  string       `json:"project_id"`
	Project    *Project     `json:"project,omitempty"`
	Characters []*Character `json:"characters"`
	Shots      []*Shot      `json:"shots"`
	Fusions    []*Fusion    `json:"fusions"`
	Loading    LoadingState `json:"loading"`
	GenOptions GenOptions   `json:"gen_options"`
}

func CloneWorkingSet(in WorkingSet) WorkingSet {
	out := in
	if in.Project != nil {
		project := *in.Project
		out.Project = &project
	}
	out.Characters = cloneSlice(in.Characters)
	out.Shots = cloneSlice(in.Shots)
	out.Fusions = cloneSlice(in.Fusions)
	return out
}

func cloneSlice[T any](in []*T) []*T {
	out := make([]*T, 0, len(in))
	for _, item := range in {
		if item == nil {
			continue
		}
		copied := *item
		out = append(out, &copied)
	}
	return out
}

// FlexString accepts either a JSON string or a JSON number. The backend
// writes shot numbers both ways.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

package types

import "testing"

func TestGenOptionsMergeKeepsUnsetKeys(t *testing.T) {
	base := GenOptions{ImageProviderID: "dashscope", TextModelName: "qwen-max"}
	model := "wanx-v2"
	got := base.Merge(GenOptionsPatch{ImageModelName: &model})
	if got.ImageProviderID != "dashscope" || got.TextModelName != "qwen-max" {
		t.Fatalf("expected untouched keys to survive, got %+v", got)
	}
	if got.ImageModelName != "wanx-v2" {
		t.Fatalf("expected patched key, got %q", got.ImageModelName)
	}
}

func TestGenOptionsMergeCanClearAKey(t *testing.T) {
	base := GenOptions{VideoProviderID: "kling"}
	empty := ""
	got := base.Merge(GenOptionsPatch{VideoProviderID: &empty})
	if got.VideoProviderID != "" {
		t.Fatalf("expected explicit empty value to apply, got %q", got.VideoProviderID)
	}
}

func TestGenOptionsPatchRoundTrip(t *testing.T) {
	base := GenOptions{
		ImageProviderID:  "a",
		ImageModelName:   "b",
		TextProviderID:   "c",
		TextModelName:    "d",
		FusionProviderID: "e",
		FusionModelName:  "f",
		VideoProviderID:  "g",
		VideoModelName:   "h",
	}
	if got := DefaultGenOptions().Merge(base.Patch()); got != base {
		t.Fatalf("expected full patch to reproduce options, got %+v", got)
	}
}

func TestGenOptionsPatchSetByKey(t *testing.T) {
	patch, err := GenOptionsPatch{}.Set("fusionmodelname", "flux")
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	got := DefaultGenOptions().Merge(patch)
	if got.FusionModelName != "flux" {
		t.Fatalf("expected case-insensitive key match, got %+v", got)
	}
	if value, ok := got.Get("fusionModelName"); !ok || value != "flux" {
		t.Fatalf("unexpected Get result: %q %v", value, ok)
	}
	if _, err := (GenOptionsPatch{}).Set("colour", "red"); err == nil {
		t.Fatalf("expected unknown key error")
	}
	if !(GenOptionsPatch{}).Empty() || patch.Empty() {
		t.Fatalf("unexpected Empty results")
	}
}

func TestProviderModelsOfTypeDefaultsToImage(t *testing.T) {
	p := Provider{Models: []ProviderModel{{Name: "wanx"}, {Name: "qwen", Type: "text"}, {Name: "kling", Type: "Video"}}}
	if got := p.ModelsOfType("image"); len(got) != 1 || got[0] != "wanx" {
		t.Fatalf("unexpected image models: %#v", got)
	}
	if got := p.ModelsOfType("video"); len(got) != 1 || got[0] != "kling" {
		t.Fatalf("unexpected video models: %#v", got)
	}
	if !p.IsEnabled() {
		t.Fatalf("expected missing enabled flag to mean enabled")
	}
}

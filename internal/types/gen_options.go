package types

import (
	"fmt"
	"sort"
	"strings"
)

// GenOptions holds the provider and model picked for each generation kind.
type GenOptions struct {
	ImageProviderID  string `json:"imageProviderId" toml:"image_provider_id"`
	ImageModelName   string `json:"imageModelName" toml:"image_model_name"`
	TextProviderID   string `json:"textProviderId" toml:"text_provider_id"`
	TextModelName    string `json:"textModelName" toml:"text_model_name"`
	FusionProviderID string `json:"fusionProviderId" toml:"fusion_provider_id"`
	FusionModelName  string `json:"fusionModelName" toml:"fusion_model_name"`
	VideoProviderID  string `json:"videoProviderId" toml:"video_provider_id"`
	VideoModelName   string `json:"videoModelName" toml:"video_model_name"`
}

// GenOptionsPatch carries a partial update. Nil fields leave the current
// value untouched.
type GenOptionsPatch struct {
	ImageProviderID  *string `json:"imageProviderId,omitempty"`
	ImageModelName   *string `json:"imageModelName,omitempty"`
	TextProviderID   *string `json:"textProviderId,omitempty"`
	TextModelName    *string `json:"textModelName,omitempty"`
	FusionProviderID *string `json:"fusionProviderId,omitempty"`
	FusionModelName  *string `json:"fusionModelName,omitempty"`
	VideoProviderID  *string `json:"videoProviderId,omitempty"`
	VideoModelName   *string `json:"videoModelName,omitempty"`
}

func DefaultGenOptions() GenOptions {
	return GenOptions{}
}

// Merge applies patch over o key by key.
func (o GenOptions) Merge(patch GenOptionsPatch) GenOptions {
	out := o
	for _, field := range genOptionFields {
		if value := field.patch(&patch); *value != nil {
			*field.value(&out) = **value
		}
	}
	return out
}

// Patch converts o to a patch that sets every key.
func (o GenOptions) Patch() GenOptionsPatch {
	var patch GenOptionsPatch
	for _, field := range genOptionFields {
		value := *field.value(&o)
		*field.patch(&patch) = &value
	}
	return patch
}

func (o GenOptions) Get(key string) (string, bool) {
	field, ok := genOptionFieldByKey(key)
	if !ok {
		return "", false
	}
	return *field.value(&o), true
}

// Set returns a patch that assigns value to the named key.
func (p GenOptionsPatch) Set(key, value string) (GenOptionsPatch, error) {
	field, ok := genOptionFieldByKey(key)
	if !ok {
		return p, fmt.Errorf("unknown gen option %q (known: %s)", key, strings.Join(GenOptionKeys(), ", "))
	}
	v := value
	*field.patch(&p) = &v
	return p, nil
}

func (p GenOptionsPatch) Empty() bool {
	for _, field := range genOptionFields {
		if *field.patch(&p) != nil {
			return false
		}
	}
	return true
}

func GenOptionKeys() []string {
	keys := make([]string, 0, len(genOptionFields))
	for _, field := range genOptionFields {
		keys = append(keys, field.key)
	}
	sort.Strings(keys)
	return keys
}

type genOptionField struct {
	key   string
	value func(*GenOptions) *string
	patch func(*GenOptionsPatch) **string
}

var genOptionFields = []genOptionField{
	{"imageProviderId", func(o *GenOptions) *string { return &o.ImageProviderID }, func(p *GenOptionsPatch) **string { return &p.ImageProviderID }},
	{"imageModelName", func(o *GenOptions) *string { return &o.ImageModelName }, func(p *GenOptionsPatch) **string { return &p.ImageModelName }},
	{"textProviderId", func(o *GenOptions) *string { return &o.TextProviderID }, func(p *GenOptionsPatch) **string { return &p.TextProviderID }},
	{"textModelName", func(o *GenOptions) *string { return &o.TextModelName }, func(p *GenOptionsPatch) **string { return &p.TextModelName }},
	{"fusionProviderId", func(o *GenOptions) *string { return &o.FusionProviderID }, func(p *GenOptionsPatch) **string { return &p.FusionProviderID }},
	{"fusionModelName", func(o *GenOptions) *string { return &o.FusionModelName }, func(p *GenOptionsPatch) **string { return &p.FusionModelName }},
	{"videoProviderId", func(o *GenOptions) *string { return &o.VideoProviderID }, func(p *GenOptionsPatch) **string { return &p.VideoProviderID }},
	{"videoModelName", func(o *GenOptions) *string { return &o.VideoModelName }, func(p *GenOptionsPatch) **string { return &p.VideoModelName }},
}

func genOptionFieldByKey(key string) (genOptionField, bool) {
	key = strings.TrimSpace(key)
	for _, field := range genOptionFields {
		if strings.EqualFold(field.key, key) {
			return field, true
		}
	}
	return genOptionField{}, false
}

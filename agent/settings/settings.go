package settings

import (
	"context"
	"errors"
	"strings"
)

// Stored key names, shared by every backend that keeps named fields.
const (
	KeyAPIKey            = "apiKey"
	KeyCustomInstruction = "customInstruction"
)

const defaultProfile = "default"

var ErrNothingToSave = errors.New("nothing to save")

// Settings holds the two user-managed values. Absent values read as "".
type Settings struct {
	APIKey            string `json:"apiKey,omitempty"`
	CustomInstruction string `json:"customInstruction,omitempty"`
}

// HasAPIKey reports whether a non-blank key is stored.
func (s Settings) HasAPIKey() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

// MaskedAPIKey shows only the last four characters.
func (s Settings) MaskedAPIKey() string {
	key := strings.TrimSpace(s.APIKey)
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}

// Patch names the keys a write touches. Nil fields are left as they are; an
// empty string clears the stored value.
type Patch struct {
	APIKey            *string
	CustomInstruction *string
}

func (p Patch) Empty() bool {
	return p.APIKey == nil && p.CustomInstruction == nil
}

// Apply returns s with the patch applied.
func (p Patch) Apply(s Settings) Settings {
	if p.APIKey != nil {
		s.APIKey = *p.APIKey
	}
	if p.CustomInstruction != nil {
		s.CustomInstruction = *p.CustomInstruction
	}
	return s
}

// Fields returns the patch as stored key/value pairs.
func (p Patch) Fields() map[string]string {
	fields := make(map[string]string, 2)
	if p.APIKey != nil {
		fields[KeyAPIKey] = *p.APIKey
	}
	if p.CustomInstruction != nil {
		fields[KeyCustomInstruction] = *p.CustomInstruction
	}
	return fields
}

// Store persists Settings.
type Store interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, patch Patch) error
}

// ComputePatch compares edited values against what was loaded. Inputs are
// trimmed; only keys whose value changed end up in the patch, including
// changes to "". ErrNothingToSave means both values are unchanged.
func ComputePatch(original Settings, apiKey, customInstruction string) (Patch, error) {
	apiKey = strings.TrimSpace(apiKey)
	customInstruction = strings.TrimSpace(customInstruction)

	var patch Patch
	if apiKey != original.APIKey {
		patch.APIKey = &apiKey
	}
	if customInstruction != original.CustomInstruction {
		patch.CustomInstruction = &customInstruction
	}
	if patch.Empty() {
		return Patch{}, ErrNothingToSave
	}
	return patch, nil
}

// profileName falls back to the default profile for a blank name.
func profileName(profile string) string {
	if profile = strings.TrimSpace(profile); profile != "" {
		return profile
	}
	return defaultProfile
}

func fromFields(fields map[string]string) Settings {
	return Settings{
		APIKey:            fields[KeyAPIKey],
		CustomInstruction: fields[KeyCustomInstruction],
	}
}

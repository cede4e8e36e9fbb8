// Package registry maps tag ids to their launch, display and terminate configuration.
//
// The registry is read fresh from the tags document on every insertion so edits
// made by the tag editor take effect without restarting the daemon.
package registry

import (
	"maps"
	"slices"
	"strings"
)

// PlaceholderLine1 marks an entry created for an unknown tag that still
// needs configuring.
const PlaceholderLine1 = "new entry"

// TagConfig is one tag's configuration. Absent JSON fields decode to "".
type TagConfig struct {
	Command   string `json:"command"`
	Line1     string `json:"line1"`
	Line2     string `json:"line2"`
	Line3     string `json:"line3"`
	Line4     string `json:"line4"`
	Terminate string `json:"terminate"`
}

// NeedsConfiguration reports whether the tag has no launch command.
func (c TagConfig) NeedsConfiguration() bool {
	return strings.TrimSpace(c.Command) == ""
}

// IsPlaceholder reports whether the entry is an unedited placeholder.
func (c TagConfig) IsPlaceholder() bool {
	return c.Line1 == PlaceholderLine1
}

// Lines returns the four display lines.
func (c TagConfig) Lines() [4]string {
	return [4]string{c.Line1, c.Line2, c.Line3, c.Line4}
}

// Icon codes understood by the device.
const (
	IconNone   = "0"
	IconFloppy = "1"
	IconSteam  = "2"
)

// IconFor derives the icon code from a launch command.
func IconFor(command string) string {
	switch {
	case strings.HasPrefix(strings.ToLower(command), "steam"):
		return IconSteam
	case strings.TrimSpace(command) != "":
		return IconFloppy
	default:
		return IconNone
	}
}

// Icon returns the icon code for this tag.
func (c TagConfig) Icon() string { return IconFor(c.Command) }

// NormalizeID lowercases and trims a tag id as received from the device.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Registry is an immutable snapshot of the tags document.
type Registry struct {
	tags map[string]TagConfig
}

// New builds a Registry from a map, normalizing ids.
func New(tags map[string]TagConfig) *Registry {
	r := &Registry{tags: make(map[string]TagConfig, len(tags))}
	for id, cfg := range tags {
		r.tags[NormalizeID(id)] = cfg
	}
	return r
}

// Lookup returns the configuration for id.
func (r *Registry) Lookup(id string) (TagConfig, bool) {
	if r == nil {
		return TagConfig{}, false
	}
	cfg, ok := r.tags[NormalizeID(id)]
	return cfg, ok
}

// Len returns the number of configured tags.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.tags)
}

// IDs returns the tag ids in sorted order.
func (r *Registry) IDs() []string {
	if r == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(r.tags))
}

// Tags returns a copy of the underlying map.
func (r *Registry) Tags() map[string]TagConfig {
	if r == nil {
		return map[string]TagConfig{}
	}
	return maps.Clone(r.tags)
}

// FindByLines returns the id of the first tag (in id order) whose display
// lines equal lines.
func (r *Registry) FindByLines(lines [4]string) (string, TagConfig, bool) {
	for _, id := range r.IDs() {
		cfg := r.tags[id]
		if cfg.Lines() == lines {
			return id, cfg, true
		}
	}
	return "", TagConfig{}, false
}

// PlaceholderFor returns the placeholder entry created for an unknown tag.
func PlaceholderFor(id string) TagConfig {
	return TagConfig{
		Command:   "",
		Line1:     PlaceholderLine1,
		Line2:     "configure me",
		Line3:     "edit tags file",
		Line4:     id,
		Terminate: "",
	}
}

// WithPlaceholder returns a copy of the registry that contains a placeholder
// for id. An existing placeholder entry is renamed to id instead of creating
// a second one, so at most one unconfigured entry exists at a time.
func (r *Registry) WithPlaceholder(id string) *Registry {
	id = NormalizeID(id)
	tags := r.Tags()
	for _, existing := range slices.Sorted(maps.Keys(tags)) {
		cfg := tags[existing]
		if !cfg.IsPlaceholder() {
			continue
		}
		if existing != id {
			delete(tags, existing)
			if cfg.Line4 == existing {
				cfg.Line4 = id
			}
			tags[id] = cfg
		}
		return &Registry{tags: tags}
	}
	tags[id] = PlaceholderFor(id)
	return &Registry{tags: tags}
}

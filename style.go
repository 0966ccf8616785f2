package pictura

import (
	"sync"
	"sync/atomic"
)

// ResizeMode determines how a style's target box is applied to a source image.
type ResizeMode string

const (
	// ModeBoundingBox shrinks the image to fit inside the target box,
	// preserving aspect ratio and never upscaling.
	ModeBoundingBox ResizeMode = "bounding_box"

	// ModeExact resizes to the exact target dimensions, ignoring aspect ratio.
	ModeExact ResizeMode = "exact"

	// ModeCrop scales and center-crops to fill the target box exactly.
	ModeCrop ResizeMode = "crop"
)

// StyleSpec describes a named target size for derivative images.
type StyleSpec struct {
	Name   string     `json:"name"`
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Mode   ResizeMode `json:"mode"`
}

// Validate checks the style definition for internal consistency.
func (s StyleSpec) Validate() error {
	if s.Name == "" {
		return Invalid("Style name is required")
	}
	// The source blob lives under the "original" key; a style with that
	// name would overwrite it.
	if s.Name == "original" {
		return Invalid("Style name %q is reserved", s.Name)
	}
	if s.Width <= 0 || s.Height <= 0 {
		return Invalid("Style %q must have positive dimensions", s.Name)
	}
	switch s.Mode {
	case ModeBoundingBox, ModeExact, ModeCrop:
		return nil
	default:
		return Invalid("Style %q has unknown resize mode %q", s.Name, s.Mode)
	}
}

// styleTable is one immutable registry snapshot.
type styleTable struct {
	styles       map[string]StyleSpec
	defaultStyle string
}

// StyleRegistry maps style names to specs and tracks the default style.
//
// Readers always see a consistent snapshot: Register and SetDefault mutate a
// staging copy under the registry's mutex, and Publish swaps the live
// snapshot atomically. A published registry is never empty and its default
// always resolves.
type StyleRegistry struct {
	mu      sync.Mutex
	staging styleTable
	live    atomic.Pointer[styleTable]
}

// NewStyleRegistry creates an empty registry. Publish must be called after
// registering styles before the registry can serve lookups.
func NewStyleRegistry() *StyleRegistry {
	return &StyleRegistry{
		staging: styleTable{styles: make(map[string]StyleSpec)},
	}
}

// Register adds or replaces a style in the staging copy. The change is not
// visible to readers until Publish.
func (r *StyleRegistry) Register(spec StyleSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.staging.styles[spec.Name] = spec
	return nil
}

// SetDefault marks a staged style as the default. The change is not visible
// to readers until Publish.
func (r *StyleRegistry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.staging.styles[name]; !ok {
		return UnknownStyle(name)
	}
	r.staging.defaultStyle = name
	return nil
}

// Replace swaps the entire style set in one step. Previously registered
// styles that are absent from specs are dropped. Readers see either the old
// snapshot or the new one, never a mix.
func (r *StyleRegistry) Replace(specs []StyleSpec, defaultName string) error {
	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	staging := styleTable{
		styles:       make(map[string]StyleSpec, len(specs)),
		defaultStyle: defaultName,
	}
	for _, spec := range specs {
		staging.styles[spec.Name] = spec
	}
	r.staging = staging
	return r.publishLocked()
}

// Publish atomically swaps the live snapshot for the staged table. The
// staged table must be non-empty and its default style must resolve.
func (r *StyleRegistry) Publish() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.publishLocked()
}

func (r *StyleRegistry) publishLocked() error {
	if len(r.staging.styles) == 0 {
		return Invalid("Style registry must contain at least one style")
	}
	if r.staging.defaultStyle == "" {
		return Invalid("Default style is required")
	}
	if _, ok := r.staging.styles[r.staging.defaultStyle]; !ok {
		return UnknownStyle(r.staging.defaultStyle)
	}

	snapshot := styleTable{
		styles:       make(map[string]StyleSpec, len(r.staging.styles)),
		defaultStyle: r.staging.defaultStyle,
	}
	for name, spec := range r.staging.styles {
		snapshot.styles[name] = spec
	}
	r.live.Store(&snapshot)
	return nil
}

// Resolve returns the spec for a style name. An empty name resolves to the
// default style. A name absent from the registry is an error, never a silent
// fallback to the default.
func (r *StyleRegistry) Resolve(name string) (StyleSpec, error) {
	table := r.live.Load()
	if table == nil {
		return StyleSpec{}, Internal("Style registry has not been published", nil)
	}
	if name == "" {
		name = table.defaultStyle
	}
	spec, ok := table.styles[name]
	if !ok {
		return StyleSpec{}, UnknownStyle(name)
	}
	return spec, nil
}

// Default returns the name of the published default style, or "" if the
// registry has not been published.
func (r *StyleRegistry) Default() string {
	table := r.live.Load()
	if table == nil {
		return ""
	}
	return table.defaultStyle
}

// Styles returns all published specs, for eager generation and listing.
func (r *StyleRegistry) Styles() []StyleSpec {
	table := r.live.Load()
	if table == nil {
		return nil
	}
	specs := make([]StyleSpec, 0, len(table.styles))
	for _, spec := range table.styles {
		specs = append(specs, spec)
	}
	return specs
}

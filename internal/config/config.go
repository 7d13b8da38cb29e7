// Package config loads processing profiles.
//
// A profile names one printer workflow: which resource inside the archive
// holds the instruction stream, which marker lines delimit the editable
// block, and which file extension the archive must carry. A built-in
// default profile covers the common single-plate layout; additional
// profiles come from a YAML file that is validated against an embedded
// CUE schema before use.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// DefaultName is the name of the built-in profile.
const DefaultName = "default"

// Profile describes where the instruction stream lives and how to find
// the editable block inside it.
type Profile struct {
	Name        string `yaml:"-" json:"name"`
	Resource    string `yaml:"resource" json:"resource"`
	StartMarker string `yaml:"start-marker" json:"start_marker"`
	EndMarker   string `yaml:"end-marker" json:"end_marker"`
	Extension   string `yaml:"extension" json:"extension"`
}

// Default returns the built-in profile for single-plate project archives.
func Default() Profile {
	return Profile{
		Name:        DefaultName,
		Resource:    "Metadata/plate_1.gcode",
		StartMarker: "; MACHINE_START_GCODE_END",
		EndMarker:   "; MACHINE_END_GCODE_START",
		Extension:   ".3mf",
	}
}

// File is a parsed profile file. The built-in default profile is always
// present; a file entry named "default" overrides it.
type File struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

// Load reads a YAML profile file and validates it against the embedded
// CUE schema. Unknown fields, empty markers, and extensions without a
// leading dot are rejected.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile file: %w", err)
	}
	if err := validateSchema(path, raw); err != nil {
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse profile file: %w", err)
	}
	if f.Profiles == nil {
		f.Profiles = map[string]Profile{}
	}
	for name, p := range f.Profiles {
		p.Name = name
		if p.Extension == "" {
			p.Extension = Default().Extension
		}
		f.Profiles[name] = p
	}
	if _, ok := f.Profiles[DefaultName]; !ok {
		f.Profiles[DefaultName] = Default()
	}
	return &f, nil
}

// Builtin returns a File holding only the default profile, for callers
// that run without a profile file.
func Builtin() *File {
	return &File{Profiles: map[string]Profile{DefaultName: Default()}}
}

// Profile returns the named profile.
func (f *File) Profile(name string) (Profile, error) {
	p, ok := f.Profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown profile %q", name)
	}
	return p, nil
}

// validateSchema unifies the YAML document with the #File definition and
// requires the result to be concrete.
func validateSchema(path string, raw []byte) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE).LookupPath(cue.ParsePath("#File"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile profile schema: %w", err)
	}

	file, err := cueyaml.Extract(path, raw)
	if err != nil {
		return fmt.Errorf("parse profile file: %w", err)
	}
	data := ctx.BuildFile(file)
	if err := data.Err(); err != nil {
		return fmt.Errorf("build profile data: %w", err)
	}

	if err := schema.Unify(data).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid profile file: %w", err)
	}
	return nil
}

// Package tools provides the static catalog of console tools. Each tool is described by an immutable
// Descriptor with its category, supported directions, secret requirement, remote path and the names
// of input validators. The catalog is loaded once at startup, either from the embedded catalog.yml
// or from a user supplied file, and never changes afterwards.
package tools

import (
	"bytes"
	_ "embed" // embedded default catalog
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yml
var defaultCatalog []byte

// ErrUnknownTool returned by Lookup for ids missing from the catalog
var ErrUnknownTool = errors.New("unknown tool")

// Category groups tools on the console
type Category string

// enum of all categories
const (
	EncodeDecode Category = "encode-decode"
	Hash         Category = "hash"
	Format       Category = "format"
	TextCase     Category = "text-case"
	Generator    Category = "generator"
)

var categories = []Category{EncodeDecode, Hash, Format, TextCase, Generator}

// Title returns human readable category name
func (c Category) Title() string {
	switch c {
	case EncodeDecode:
		return "Encoders/Decoders"
	case Hash:
		return "Cryptography"
	case Format:
		return "Formatting"
	case TextCase:
		return "Text Tools"
	case Generator:
		return "Generators"
	}
	return string(c)
}

// Direction of encode/decode tools
type Direction string

// enum of directions
const (
	Encode Direction = "encode"
	Decode Direction = "decode"
)

// ParseDirection converts a string to Direction, empty string means Encode
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case "", Encode:
		return Encode, nil
	case Decode:
		return Decode, nil
	}
	return "", fmt.Errorf("invalid direction %q", s)
}

// names of input validators referenced by the catalog
const (
	FormatJSON   = "json"
	FormatJWT    = "jwt"
	FormatBase64 = "base64"
	FormatBase32 = "base32"
	FormatURL    = "url"
)

var knownFormats = map[string]bool{FormatJSON: true, FormatJWT: true, FormatBase64: true, FormatBase32: true, FormatURL: true}

// Descriptor describes a single tool
type Descriptor struct {
	ID             string               `yaml:"id" json:"id"`
	Name           string               `yaml:"name" json:"name"`
	Category       Category             `yaml:"category" json:"category"`
	Path           string               `yaml:"path" json:"path"`
	SupportsEncode bool                 `yaml:"encode" json:"supports_encode"`
	SupportsDecode bool                 `yaml:"decode" json:"supports_decode"`
	RequiresSecret bool                 `yaml:"secret" json:"requires_secret"`
	Format         string               `yaml:"format" json:"format,omitempty"`   // validator for tools without directions
	Formats        map[Direction]string `yaml:"formats" json:"formats,omitempty"` // validators per direction
	Verbs          map[Direction]string `yaml:"verbs" json:"-"`                   // remote verbs if not encode/decode
}

// Bidirectional returns true if the tool has both encode and decode modes
func (d Descriptor) Bidirectional() bool {
	return d.SupportsEncode && d.SupportsDecode
}

// HasModes returns true if the tool works in encode or decode mode rather than as a plain transform
func (d Descriptor) HasModes() bool {
	return d.SupportsEncode || d.SupportsDecode
}

// Direction normalizes the requested direction. Tools supporting a single mode always use it,
// for tools without modes the direction is irrelevant and returned as is.
func (d Descriptor) Direction(dir Direction) Direction {
	switch {
	case d.Bidirectional(), !d.HasModes():
		return dir
	case d.SupportsEncode:
		return Encode
	default:
		return Decode
	}
}

// FormatFor returns the name of the input validator for the given direction, empty if none
func (d Descriptor) FormatFor(dir Direction) string {
	if !d.HasModes() {
		return d.Format
	}
	return d.Formats[d.Direction(dir)]
}

// Endpoint returns the remote path (without the /encoder prefix) for the given direction
func (d Descriptor) Endpoint(dir Direction) string {
	if !d.HasModes() {
		return d.Path
	}
	dir = d.Direction(dir)
	verb := string(dir)
	if v, ok := d.Verbs[dir]; ok && v != "" {
		verb = v
	}
	return d.Path + "/" + verb
}

// Registry is an immutable catalog of tools, safe for concurrent use
type Registry struct {
	list []Descriptor
	byID map[string]int
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns registry made from the embedded catalog
func Default() *Registry {
	defaultOnce.Do(func() {
		reg, err := Load(bytes.NewReader(defaultCatalog))
		if err != nil {
			panic(fmt.Sprintf("embedded tools catalog is broken: %v", err))
		}
		defaultRegistry = reg
	})
	return defaultRegistry
}

// LoadFile makes registry from yaml catalog file
func LoadFile(fname string) (*Registry, error) {
	fh, err := os.Open(fname) // #nosec G304 - catalog location is an operator option
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer fh.Close() // nolint
	return Load(fh)
}

// Load makes registry from yaml catalog, a list of descriptors
func Load(r io.Reader) (*Registry, error) {
	var list []Descriptor
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&list); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(list) == 0 {
		return nil, errors.New("empty catalog")
	}

	res := &Registry{list: make([]Descriptor, 0, len(list)), byID: make(map[string]int, len(list))}
	for i, d := range list {
		if err := d.check(); err != nil {
			return nil, fmt.Errorf("tool #%d: %w", i+1, err)
		}
		if _, dup := res.byID[d.ID]; dup {
			return nil, fmt.Errorf("tool #%d: duplicate id %q", i+1, d.ID)
		}
		res.byID[d.ID] = len(res.list)
		res.list = append(res.list, d)
	}
	return res, nil
}

// check verifies descriptor consistency
func (d Descriptor) check() error {
	if d.ID == "" {
		return errors.New("empty id")
	}
	known := false
	for _, c := range categories {
		if c == d.Category {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%s: unknown category %q", d.ID, d.Category)
	}
	if d.Path == "" {
		return fmt.Errorf("%s: empty path", d.ID)
	}
	if d.Category == Generator && (d.RequiresSecret || d.Format != "" || len(d.Formats) > 0 || d.HasModes()) {
		return fmt.Errorf("%s: generator can't have secret, modes or validators", d.ID)
	}
	if d.HasModes() && d.Format != "" {
		return fmt.Errorf("%s: tool with modes should use per-direction formats", d.ID)
	}
	if !d.HasModes() && (len(d.Formats) > 0 || len(d.Verbs) > 0) {
		return fmt.Errorf("%s: per-direction settings require encode or decode mode", d.ID)
	}
	if d.Format != "" && !knownFormats[d.Format] {
		return fmt.Errorf("%s: unknown format %q", d.ID, d.Format)
	}
	for dir, f := range d.Formats {
		if dir != Encode && dir != Decode {
			return fmt.Errorf("%s: invalid direction %q", d.ID, dir)
		}
		if (dir == Encode && !d.SupportsEncode) || (dir == Decode && !d.SupportsDecode) {
			return fmt.Errorf("%s: format for unsupported direction %q", d.ID, dir)
		}
		if !knownFormats[f] {
			return fmt.Errorf("%s: unknown format %q", d.ID, f)
		}
	}
	for dir := range d.Verbs {
		if dir != Encode && dir != Decode {
			return fmt.Errorf("%s: invalid verb direction %q", d.ID, dir)
		}
	}
	return nil
}

// Lookup returns descriptor by id
func (r *Registry) Lookup(id string) (Descriptor, error) {
	idx, ok := r.byID[id]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w %q", ErrUnknownTool, id)
	}
	return r.list[idx].clone(), nil
}

// All returns all descriptors in catalog order
func (r *Registry) All() []Descriptor {
	res := make([]Descriptor, 0, len(r.list))
	for _, d := range r.list {
		res = append(res, d.clone())
	}
	return res
}

// ByCategory returns descriptors of the given category in catalog order
func (r *Registry) ByCategory(c Category) []Descriptor {
	res := []Descriptor{}
	for _, d := range r.list {
		if d.Category == c {
			res = append(res, d.clone())
		}
	}
	return res
}

// Categories returns categories present in the catalog, in the fixed console order
func (r *Registry) Categories() []Category {
	res := []Category{}
	for _, c := range categories {
		for _, d := range r.list {
			if d.Category == c {
				res = append(res, c)
				break
			}
		}
	}
	return res
}

func (d Descriptor) clone() Descriptor {
	d.Formats = maps.Clone(d.Formats)
	d.Verbs = maps.Clone(d.Verbs)
	return d
}

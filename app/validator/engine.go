package validator

import (
	"github.com/umputun/toolkit/app/tools"
)

// Context of a single validation call
type Context struct {
	ToolID    string
	Direction tools.Direction
	Text      string
	Secret    string
}

// Catalog provides tool descriptors
type Catalog interface {
	Lookup(id string) (tools.Descriptor, error)
}

// Engine selects validators by tool and direction. It holds no mutable state,
// every call is a pure function of the context and the immutable catalog.
type Engine struct {
	catalog Catalog
	formats map[string]FormatValidator
}

// NewEngine makes engine with all known format validators
func NewEngine(catalog Catalog) *Engine {
	return &Engine{
		catalog: catalog,
		formats: map[string]FormatValidator{
			tools.FormatJSON:   JSONValidator{},
			tools.FormatJWT:    JWTValidator{},
			tools.FormatBase64: Base64Validator{},
			tools.FormatBase32: Base32Validator{},
			tools.FormatURL:    URLValidator{},
		},
	}
}

// Strict runs the submit-time validation. The first failed check wins:
// empty input, then secret presence and length, then the format validator.
// Tools without a format validator pass through.
func (e *Engine) Strict(vc Context) *Diagnostic {
	if Blank(vc.Text) {
		return blocking(EmptyInput, FieldText, "Input is empty. Please enter some text to process.")
	}

	desc, err := e.catalog.Lookup(vc.ToolID)
	if err != nil {
		return nil
	}

	if desc.RequiresSecret {
		if d := SecretStrict(vc.Secret); d != nil {
			return d
		}
	}

	if f, ok := e.format(desc, vc.Direction); ok {
		return f.Strict(vc.Text)
	}
	return nil
}

// Lightweight runs the as-you-type validation of the text, empty text clears
func (e *Engine) Lightweight(vc Context) *Diagnostic {
	if Blank(vc.Text) {
		return nil
	}
	desc, err := e.catalog.Lookup(vc.ToolID)
	if err != nil {
		return nil
	}
	if f, ok := e.format(desc, vc.Direction); ok {
		return f.Lightweight(vc.Text)
	}
	return nil
}

// LightweightSecret runs the as-you-type validation of the secret for tools requiring it
func (e *Engine) LightweightSecret(toolID, secret string) *Diagnostic {
	desc, err := e.catalog.Lookup(toolID)
	if err != nil || !desc.RequiresSecret {
		return nil
	}
	return SecretLightweight(secret)
}

func (e *Engine) format(desc tools.Descriptor, dir tools.Direction) (FormatValidator, bool) {
	name := desc.FormatFor(dir)
	if name == "" {
		return nil, false
	}
	f, ok := e.formats[name]
	return f, ok
}

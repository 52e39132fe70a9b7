// Package page implements the tool page state machine: selected tool and direction,
// input text and secret with their diagnostics, and the output of the last remote call.
// Lightweight validation runs on every change, the strict pass gates every submission.
package page

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	log "github.com/go-pkgz/lgr"

	"github.com/umputun/toolkit/app/tools"
	"github.com/umputun/toolkit/app/transform"
	"github.com/umputun/toolkit/app/validator"
)

//go:generate moq -out transformer_mock.go -fmt goimports . Transformer

// errors returned by Submit and Generate
var (
	ErrBlocked     = errors.New("blocked by validation")
	ErrUnsupported = errors.New("operation not supported")
)

// lorem limits, as the generator form allows
const (
	MinParagraphs = 1
	MaxParagraphs = 10
	MinCharacters = 10
	MaxCharacters = 10000

	charactersModeParagraphs = 10
)

// Transformer calls the remote service
type Transformer interface {
	Transform(ctx context.Context, req transform.Request) (string, error)
	Generate(ctx context.Context, path string, req transform.GenerateRequest) (string, error)
}

// Catalog looks up tools by id
type Catalog interface {
	Lookup(id string) (tools.Descriptor, error)
}

// State is a snapshot of the page
type State struct {
	Tool       tools.Descriptor
	Direction  tools.Direction
	Text       string
	Secret     string
	InputDiag  *validator.Diagnostic
	SecretDiag *validator.Diagnostic
	Output     string
}

// LoremParams are generator options. Characters > 0 switches to characters mode,
// the generated text is trimmed to that many characters.
type LoremParams struct {
	Paragraphs int
	UseLorem   bool
	Characters int
}

// Controller drives a single page, not thread-safe; one controller per user interaction
type Controller struct {
	catalog Catalog
	engine  *validator.Engine
	remote  Transformer
	state   State
}

// New makes a controller with the tool selected
func New(catalog Catalog, engine *validator.Engine, remote Transformer, toolID string) (*Controller, error) {
	c := &Controller{catalog: catalog, engine: engine, remote: remote}
	if err := c.SelectTool(toolID); err != nil {
		return nil, err
	}
	return c, nil
}

// State returns the current snapshot
func (c *Controller) State() State {
	return c.state
}

// SelectTool switches to another tool and resets the page. Unknown tool keeps the current state.
func (c *Controller) SelectTool(id string) error {
	d, err := c.catalog.Lookup(id)
	if err != nil {
		return fmt.Errorf("can't select tool: %w", err)
	}
	c.state = State{Tool: d, Direction: d.Direction(tools.Encode)}
	return nil
}

// SetDirection switches between encode and decode and resets the page.
// Single-mode tools stay in their only direction.
func (c *Controller) SetDirection(dir tools.Direction) {
	c.state = State{Tool: c.state.Tool, Direction: c.state.Tool.Direction(dir)}
}

// Restore loads a page posted back by a stateless client, the lightweight passes run on text and secret
func (c *Controller) Restore(dir tools.Direction, text, secret, output string) {
	c.SetDirection(dir)
	c.ChangeSecret(secret)
	c.ChangeInput(text)
	c.state.Output = output
}

// ChangeInput updates the text and runs the lightweight pass
func (c *Controller) ChangeInput(text string) {
	c.state.Text = text
	c.state.InputDiag = c.engine.Lightweight(c.context())
}

// ChangeSecret updates the secret and runs the lightweight secret pass
func (c *Controller) ChangeSecret(secret string) {
	c.state.Secret = secret
	c.state.SecretDiag = c.engine.LightweightSecret(c.state.Tool.ID, secret)
}

// CanSubmit reports if the process action is available. Warnings never disable it.
func (c *Controller) CanSubmit() bool {
	return c.state.Text != "" && c.state.Tool.Category != tools.Generator
}

// Submit runs the strict pass and, if nothing blocks, calls the remote transform.
// Blocking diagnostic is placed on its field and returned wrapped with ErrBlocked,
// remote failure is rendered to the output as "Error: <detail>" and returned.
func (c *Controller) Submit(ctx context.Context) error {
	if c.state.Tool.Category == tools.Generator {
		return fmt.Errorf("submit %s: %w", c.state.Tool.ID, ErrUnsupported)
	}

	c.state.InputDiag, c.state.SecretDiag = nil, nil
	if d := c.engine.Strict(c.context()); d != nil {
		if d.Field == validator.FieldSecret {
			c.state.SecretDiag = d
		} else {
			c.state.InputDiag = d
		}
		return fmt.Errorf("%w: %w", ErrBlocked, d)
	}

	res, err := c.remote.Transform(ctx, transform.Request{
		Tool:      c.state.Tool,
		Direction: c.state.Direction,
		Text:      c.state.Text,
		Secret:    c.state.Secret,
	})
	if err != nil {
		log.Printf("[WARN] transform %s failed, %v", c.state.Tool.Endpoint(c.state.Direction), err)
		c.state.Output = "Error: " + transform.Detail(err)
		return err
	}
	c.state.Output = res
	return nil
}

// Generate runs the selected generator tool and puts the result to the output
func (c *Controller) Generate(ctx context.Context, params LoremParams) error {
	if c.state.Tool.Category != tools.Generator {
		return fmt.Errorf("generate with %s: %w", c.state.Tool.ID, ErrUnsupported)
	}

	req := transform.GenerateRequest{}
	if c.state.Tool.ID == "lorem" {
		req.UseLorem = params.UseLorem
		req.Paragraphs = min(max(params.Paragraphs, MinParagraphs), MaxParagraphs)
		if params.Characters > 0 {
			req.Paragraphs = charactersModeParagraphs
		}
	}

	res, err := c.remote.Generate(ctx, c.state.Tool.Path, req)
	if err != nil {
		log.Printf("[WARN] generate %s failed, %v", c.state.Tool.Path, err)
		c.state.Output = "Error: " + transform.Detail(err)
		return err
	}
	if c.state.Tool.ID == "lorem" && params.Characters > 0 {
		res = truncate(res, min(max(params.Characters, MinCharacters), MaxCharacters))
	}
	c.state.Output = res
	return nil
}

// Clear resets text, secret, output and diagnostics, the tool and direction stay
func (c *Controller) Clear() {
	c.SetDirection(c.state.Direction)
}

// Swap exchanges input and output and revalidates the new input.
// Available for bidirectional tools only.
func (c *Controller) Swap() error {
	if !c.state.Tool.Bidirectional() {
		return fmt.Errorf("swap with %s: %w", c.state.Tool.ID, ErrUnsupported)
	}
	text, out := c.state.Output, c.state.Text
	c.state.Output = out
	c.ChangeInput(text)
	return nil
}

func (c *Controller) context() validator.Context {
	return validator.Context{
		ToolID:    c.state.Tool.ID,
		Direction: c.state.Direction,
		Text:      c.state.Text,
		Secret:    c.state.Secret,
	}
}

// truncate cuts s to n characters
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

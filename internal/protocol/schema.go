package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var schemaFiles = map[string]string{
	TypeHello:   "hello.schema.json",
	TypeWelcome: "welcome.schema.json",
	TypeCommand: "command.schema.json",
	TypeReply:   "reply.schema.json",
	TypeMessage: "message.schema.json",
	TypeEvent:   "event.schema.json",
}

var (
	compileOnce sync.Once
	compiled    map[string]*jsonschema.Schema
	compileErr  error
)

func schemas() (map[string]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		out := make(map[string]*jsonschema.Schema, len(schemaFiles))
		for typ, name := range schemaFiles {
			b, err := schemaFS.ReadFile("schemas/" + name)
			if err != nil {
				compileErr = err
				return
			}
			url := "https://tickbot.dev/schemas/" + name
			if err := c.AddResource(url, bytes.NewReader(b)); err != nil {
				compileErr = fmt.Errorf("add %s: %w", name, err)
				return
			}
			s, err := c.Compile(url)
			if err != nil {
				compileErr = fmt.Errorf("compile %s: %w", name, err)
				return
			}
			out[typ] = s
		}
		compiled = out
	})
	return compiled, compileErr
}

// Validate checks raw against the schema selected by its type field.
func Validate(raw []byte) error {
	base, err := DecodeBase(raw)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	all, err := schemas()
	if err != nil {
		return err
	}
	s, ok := all[base.Type]
	if !ok {
		return fmt.Errorf("unknown message type %q", base.Type)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return s.Validate(v)
}

// ValidateCommand is Validate restricted to COMMAND frames.
func ValidateCommand(raw []byte) error {
	base, err := DecodeBase(raw)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if base.Type != TypeCommand {
		return fmt.Errorf("expected %s, got %q", TypeCommand, base.Type)
	}
	return Validate(raw)
}

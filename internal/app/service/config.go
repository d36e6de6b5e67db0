package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/jose-valero/psforever-bot/internal/infra/docstore"
)

var ErrUnknownPath = errors.New("unknown config path")

const ReportChannelPath = "report.channelId"

func DefaultConfigTree() docstore.Tree {
	return docstore.Tree{"report": map[string]any{"channelId": ""}}
}

// ConfigService expone config.json para los comandos de administración.
type ConfigService struct {
	doc *docstore.Document[docstore.Tree]
	log zerolog.Logger
}

func NewConfigService(doc *docstore.Document[docstore.Tree], log zerolog.Logger) *ConfigService {
	return &ConfigService{doc: doc, log: log}
}

func (c *ConfigService) Name() string { return "config" }

func (c *ConfigService) Initialize(ctx context.Context) error {
	if err := c.doc.Restore(ctx); err != nil {
		c.log.Warn().Err(err).Msg("using default config")
	}
	return nil
}

// Get devuelve el valor en path como JSON indentado; path vacío devuelve todo.
func (c *ConfigService) Get(path string) (string, error) {
	v, ok := c.doc.Get().Lookup(path)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownPath, path)
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Set guarda raw en path. Objetos, listas, strings entre comillas, true/false/null se leen como JSON;
// cualquier otra cosa (IDs incluidos) queda como string.
func (c *ConfigService) Set(path, raw string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("config path required")
	}
	v, err := parseValue(raw)
	if err != nil {
		return err
	}
	c.doc.Update(func(t docstore.Tree) docstore.Tree { return t.With(path, v) })
	c.log.Info().Str("path", path).Msg("config updated")
	return nil
}

func (c *ConfigService) String(path string) string { return c.doc.Get().String(path) }

func parseValue(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "true", raw == "false", raw == "null",
		strings.HasPrefix(raw, "{"), strings.HasPrefix(raw, "["), strings.HasPrefix(raw, `"`):
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("invalid JSON value: %w", err)
		}
		return v, nil
	default:
		return raw, nil
	}
}

func (c *ConfigService) Teardown(ctx context.Context) error { return c.doc.Close(ctx) }

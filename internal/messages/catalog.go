// Package messages maps operation outcomes and failures to user-facing text.
package messages

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/sadopc/reportory/internal/backup"
	"github.com/sadopc/reportory/internal/settings"
	"github.com/sadopc/reportory/internal/store"
)

//go:embed locales/*.toml
var locales embed.FS

const (
	LanguageKo = "ko"
	LanguageEn = "en"
)

type Catalog struct {
	bundle *i18n.Bundle
	logger *zap.Logger
}

// New loads the embedded catalogs. Korean is the fallback language.
func New(logger *zap.Logger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	bundle := i18n.NewBundle(language.Korean)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	files, err := fs.ReadDir(locales, "locales")
	if err != nil {
		return nil, fmt.Errorf("list locales: %w", err)
	}
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		data, err := locales.ReadFile(path.Join("locales", f.Name()))
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", f.Name(), err)
		}
		if _, err := bundle.ParseMessageFileBytes(data, f.Name()); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", f.Name(), err)
		}
	}
	return &Catalog{bundle: bundle, logger: logger}, nil
}

// Languages lists the loaded language tags.
func (c *Catalog) Languages() []string {
	tags := c.bundle.LanguageTags()
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, t.String())
	}
	return out
}

// Message localizes id. An unknown id comes back unchanged.
func (c *Catalog) Message(lang, id string) string {
	return c.MessageWith(lang, id, nil)
}

// MessageWith localizes id, filling template fields from data.
func (c *Catalog) MessageWith(lang, id string, data any) string {
	loc := i18n.NewLocalizer(c.bundle, lang)
	msg, err := loc.Localize(&i18n.LocalizeConfig{MessageID: id, TemplateData: data})
	if err != nil {
		c.logger.Warn("missing message", zap.String("id", id), zap.String("lang", lang), zap.Error(err))
		return id
	}
	return msg
}

func (c *Catalog) Outcome(lang string, o store.Outcome) string {
	return c.Message(lang, string(o))
}

// Error picks the message for err by what went wrong, not by which call
// failed.
func (c *Catalog) Error(lang string, err error) string {
	return c.Message(lang, ErrorID(err))
}

// ErrorID returns the message id describing err.
func ErrorID(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, backup.ErrCancelled):
		return "cancelled"
	case errors.Is(err, backup.ErrMalformed):
		return "malformedBackup"
	case errors.Is(err, settings.ErrInvalid):
		return "invalidSettings"
	}

	var se *store.Error
	if !errors.As(err, &se) {
		return "retryLater"
	}
	switch se.Kind {
	case store.KindNotFound:
		if strings.Contains(se.Op, "todo") {
			return "todoNotFound"
		}
		return "notFound"
	case store.KindValidation:
		return "invalidInput"
	case store.KindBlocked:
		return "databaseBlocked"
	case store.KindUnavailable:
		return "databaseUnavailable"
	default:
		return "retryLater"
	}
}

// Package settings persists the user's display preferences as a single JSON
// blob outside the database.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"go.uber.org/zap"
)

// Key is the namespace key the settings blob is stored under.
const Key = "daily-report-settings"

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeAuto  Theme = "auto"
)

type Settings struct {
	Theme        Theme  `json:"theme"`
	PrimaryColor string `json:"primaryColor"`
}

func Default() Settings {
	return Settings{Theme: ThemeLight, PrimaryColor: "#14B8A6"}
}

var ErrInvalid = errors.New("invalid settings")

var colorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

func (s Settings) Validate() error {
	switch s.Theme {
	case ThemeLight, ThemeDark, ThemeAuto:
	default:
		return fmt.Errorf("%w: theme %q (want light, dark or auto)", ErrInvalid, s.Theme)
	}
	if !colorRe.MatchString(s.PrimaryColor) {
		return fmt.Errorf("%w: primaryColor %q (want #RRGGBB)", ErrInvalid, s.PrimaryColor)
	}
	return nil
}

// Service loads and saves Settings through a Namespace.
type Service struct {
	ns     Namespace
	logger *zap.Logger
}

func NewService(ns Namespace, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{ns: ns, logger: logger}
}

// Load returns the stored settings, or Default when nothing is stored. A
// stored blob that does not parse also yields Default; the failure is logged,
// not returned.
func (s *Service) Load() (Settings, error) {
	raw, ok, err := s.ns.Get(Key)
	if err != nil {
		return Default(), fmt.Errorf("load settings: %w", err)
	}
	if !ok {
		return Default(), nil
	}
	out := Default()
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		s.logger.Warn("stored settings are unreadable, using defaults", zap.Error(err))
		return Default(), nil
	}
	return out, nil
}

func (s *Service) Save(v Settings) error {
	if err := v.Validate(); err != nil {
		return err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := s.ns.Set(Key, string(b)); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// Raw returns the stored blob unparsed, for export.
func (s *Service) Raw() (string, bool, error) {
	raw, ok, err := s.ns.Get(Key)
	if err != nil {
		return "", false, fmt.Errorf("read settings: %w", err)
	}
	return raw, ok, nil
}

// Restore writes a blob back verbatim. It is not validated, matching what an
// exported document carried.
func (s *Service) Restore(raw string) error {
	if err := s.ns.Set(Key, raw); err != nil {
		return fmt.Errorf("restore settings: %w", err)
	}
	return nil
}

func (s *Service) Clear() error {
	if err := s.ns.Remove(Key); err != nil {
		return fmt.Errorf("clear settings: %w", err)
	}
	return nil
}

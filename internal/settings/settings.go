// Package settings holds the immutable inputs of a transcription run: the
// user's request and the model, language and accuracy chosen for it.
package settings

import (
	"fmt"
	"strings"

	"github.com/alnah/go-scribe/internal/lang"
)

// Model is a speech-to-text model tier. Larger tiers cost more per minute.
type Model string

// Model tiers, smallest first.
const (
	ModelTiny   Model = "tiny"
	ModelBase   Model = "base"
	ModelSmall  Model = "small"
	ModelMedium Model = "medium"
	ModelLarge  Model = "large"
)

// Models lists every tier in ascending size.
var Models = []Model{ModelTiny, ModelBase, ModelSmall, ModelMedium, ModelLarge}

// ParseModel accepts a tier name case-insensitively.
func ParseModel(s string) (Model, error) {
	m := Model(strings.ToLower(strings.TrimSpace(s)))
	if err := m.Validate(); err != nil {
		return "", err
	}
	return m, nil
}

// Validate returns ErrInvalidModel for unknown tiers.
func (m Model) Validate() error {
	for _, known := range Models {
		if m == known {
			return nil
		}
	}
	return fmt.Errorf("%w: %q (expected tiny, base, small, medium or large)", ErrInvalidModel, string(m))
}

// Accuracy trades decoding determinism for speed.
type Accuracy string

// Accuracy tiers.
const (
	AccuracyLow    Accuracy = "low"
	AccuracyMedium Accuracy = "medium"
	AccuracyHigh   Accuracy = "high"
)

// ParseAccuracy accepts an accuracy name case-insensitively.
func ParseAccuracy(s string) (Accuracy, error) {
	a := Accuracy(strings.ToLower(strings.TrimSpace(s)))
	if err := a.Validate(); err != nil {
		return "", err
	}
	return a, nil
}

// Validate returns ErrInvalidAccuracy for unknown tiers.
func (a Accuracy) Validate() error {
	switch a {
	case AccuracyLow, AccuracyMedium, AccuracyHigh:
		return nil
	}
	return fmt.Errorf("%w: %q (expected low, medium or high)", ErrInvalidAccuracy, string(a))
}

// Temperature is the sampling temperature sent to the provider.
// Higher accuracy means lower temperature.
func (a Accuracy) Temperature() float32 {
	switch a {
	case AccuracyHigh:
		return 0.0
	case AccuracyLow:
		return 0.8
	default:
		return 0.4
	}
}

// Settings is the value object chosen by the user for one request.
type Settings struct {
	Model    Model    `json:"model"`
	Language string   `json:"language"`
	Accuracy Accuracy `json:"accuracy"`
}

// Default returns base tier, auto-detected language, medium accuracy.
func Default() Settings {
	return Settings{Model: ModelBase, Language: lang.Auto, Accuracy: AccuracyMedium}
}

// Validate checks every field.
func (s Settings) Validate() error {
	if err := s.Model.Validate(); err != nil {
		return err
	}
	if err := s.Accuracy.Validate(); err != nil {
		return err
	}
	return lang.Validate(s.Language)
}

// AutoLanguage reports whether the provider should detect the language.
func (s Settings) AutoLanguage() bool {
	return lang.IsAuto(s.Language)
}

// Request is a user's submission. It is never mutated after creation.
type Request struct {
	UserID   string   `json:"user_id"`
	MediaRef string   `json:"media_ref"`
	Settings Settings `json:"settings"`

	// Duration in seconds when already known to the caller; nil means probe.
	Duration *float64 `json:"duration,omitempty"`
}

// Validate checks the request envelope and its settings.
func (r Request) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.MediaRef) == "" {
		return fmt.Errorf("%w: media reference is required", ErrInvalidRequest)
	}
	if r.Duration != nil && *r.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %v", ErrInvalidRequest, *r.Duration)
	}
	return r.Settings.Validate()
}

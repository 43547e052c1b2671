package dialogue

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrMissingTemplates = errors.New("response templates missing")

const (
	defaultFallback     = "I didn't understand your request"
	defaultInvalidInput = "Invalid input."
)

// Templates maps intent labels to canned responses.
type Templates struct {
	Language     string            `yaml:"language"`
	Fallback     string            `yaml:"fallback"`
	InvalidInput string            `yaml:"invalid_input"`
	Responses    map[string]string `yaml:"responses"`
}

func DefaultTemplates() *Templates {
	return &Templates{
		Language:     "en",
		Fallback:     defaultFallback,
		InvalidInput: defaultInvalidInput,
		Responses: map[string]string{
			"open_app":      "Opening the requested application...",
			"play_audio":    "Playing your favorite music!",
			"search_info":   "Searching for relevant information...",
			"check_weather": "Checking the weather forecast...",
		},
	}
}

// LoadTemplates reads a YAML template table:
//
//	language: pt
//	fallback: "Desculpe, não entendi sua solicitação."
//	invalid_input: "Entrada inválida."
//	responses:
//	  abrir_app: "Abrindo o aplicativo solicitado..."
func LoadTemplates(path string) (*Templates, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingTemplates, err)
	}
	var t Templates
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse templates %s: %w", path, err)
	}
	if strings.TrimSpace(t.Fallback) == "" {
		return nil, fmt.Errorf("templates %s: fallback message is required", path)
	}
	if t.InvalidInput == "" {
		t.InvalidInput = t.Fallback
	}
	if t.Responses == nil {
		t.Responses = map[string]string{}
	}
	return &t, nil
}

// Lookup returns the response for intent, or the fallback message.
func (t *Templates) Lookup(intent string) string {
	if r, ok := t.Responses[intent]; ok && r != "" {
		return r
	}
	return t.Fallback
}

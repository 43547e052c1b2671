// Package command answers small-talk phrases and builds action links
// (music search, Wikipedia) from a user utterance.
package command

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/nikhilbhutani/voiceassistant/pkg/tokenizer"
)

const (
	fallbackResponse = "Desculpe, não entendi o comando. Pode repetir?"
	weatherResponse  = "A previsão do tempo para São Paulo hoje é de sol com algumas nuvens."
	defaultWikiTopic = "Inteligencia_artificial"
)

// Result carries the reply and any suggested actions, keyed by target
// ("youtube", "spotify", "wikipedia"). Matched is false only for the
// fallback reply.
type Result struct {
	Response string            `json:"response"`
	Actions  map[string]string `json:"actions"`
	Matched  bool              `json:"matched"`
}

type phrase struct {
	key      string
	response string
}

// Executor matches normalized input against a phrase table, longest phrase
// first, then against the built-in actions.
type Executor struct {
	phrases []phrase
	logger  *slog.Logger
}

func defaultPhrases() map[string]string {
	return map[string]string{
		"ola":            "Olá! Estou bem, e você?",
		"tudo bem":       "Olá! Estou bem, e você?",
		"piada":          "Por que o computador foi ao médico? Porque estava com um vírus!",
		"capital franca": "A capital da França é Paris.",
		"traduz bom dia": "Bom dia em inglês é Good Morning.",
	}
}

// NewExecutor merges extra phrases over the defaults. Keys are normalized
// before matching.
func NewExecutor(extra map[string]string) *Executor {
	merged := make(map[string]string)
	for k, v := range defaultPhrases() {
		merged[tokenizer.Normalize(k)] = v
	}
	for k, v := range extra {
		if key := tokenizer.Normalize(k); key != "" {
			merged[key] = v
		}
	}

	phrases := make([]phrase, 0, len(merged))
	for k, v := range merged {
		phrases = append(phrases, phrase{key: k, response: v})
	}
	sort.Slice(phrases, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(phrases[i].key), utf8.RuneCountInString(phrases[j].key)
		if li != lj {
			return li > lj
		}
		return phrases[i].key < phrases[j].key
	})

	return &Executor{
		phrases: phrases,
		logger:  slog.Default().With("component", "command"),
	}
}

// LoadPhrases reads extra phrases from YAML:
//
//	phrases:
//	  bom dia: "Bom dia! Como posso ajudar?"
func LoadPhrases(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read phrases: %w", err)
	}
	var f struct {
		Phrases map[string]string `yaml:"phrases"`
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse phrases %s: %w", path, err)
	}
	return f.Phrases, nil
}

func (e *Executor) Execute(text string) Result {
	norm := tokenizer.Normalize(text)
	e.logger.Debug("executing command", "text", norm)

	if r, ok := e.match(norm); ok {
		return Result{Response: r, Actions: map[string]string{}, Matched: true}
	}

	words := strings.Fields(norm)
	switch {
	case contains(words, "musica"):
		return music(words)
	case strings.Contains(norm, "wikipedia"):
		return wikipedia(norm)
	case contains(words, "clima") || strings.Contains(norm, "previsao do tempo"):
		return Result{Response: weatherResponse, Actions: map[string]string{}, Matched: true}
	}
	return Result{Response: fallbackResponse, Actions: map[string]string{}}
}

// match compares whole words, so "ola" does not fire inside "bola".
func (e *Executor) match(norm string) (string, bool) {
	padded := " " + norm + " "
	for _, p := range e.phrases {
		if strings.Contains(padded, " "+p.key+" ") {
			e.logger.Debug("phrase matched", "phrase", p.key)
			return p.response, true
		}
	}
	return "", false
}

// music looks for "musica(s) do/da/de <artist>".
func music(words []string) Result {
	var artist []string
	var prep string
	for i, w := range words {
		if (w == "do" || w == "da" || w == "de") && i+1 < len(words) && contains(words[:i], "musica") {
			prep, artist = w, words[i+1:]
			break
		}
	}
	if len(artist) == 0 {
		return Result{Response: "Claro! Qual artista você quer ouvir?", Actions: map[string]string{}, Matched: true}
	}

	name := titleCase(strings.Join(artist, " "))
	return Result{
		Response: fmt.Sprintf("Claro! Vou procurar músicas %s %s para você. Quer abrir no YouTube ou Spotify?", prep, name),
		Actions: map[string]string{
			"youtube": "https://www.youtube.com/results?search_query=" + url.QueryEscape(name),
			"spotify": "https://open.spotify.com/search/" + url.PathEscape(name),
		},
		Matched: true,
	}
}

func wikipedia(norm string) Result {
	_, after, _ := strings.Cut(norm, "wikipedia")
	topic := strings.ReplaceAll(strings.TrimSpace(after), " ", "_")
	if topic == "" {
		topic = defaultWikiTopic
	}
	display := capitalize(strings.ReplaceAll(topic, "_", " "))
	return Result{
		Response: fmt.Sprintf("Abrindo a Wikipedia sobre %s.", display),
		Actions:  map[string]string{"wikipedia": "https://pt.wikipedia.org/wiki/" + url.PathEscape(topic)},
		Matched:  true,
	}
}

func contains(words []string, w string) bool {
	for _, x := range words {
		if x == w || x == w+"s" {
			return true
		}
	}
	return false
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

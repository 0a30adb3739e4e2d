package config

import (
	_ "embed"
	"os"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/lexflow/pkg/booking"
	"github.com/go-go-golems/lexflow/pkg/session"
)

const (
	DemoID               = "demo"
	DefaultMaxFileSizeMB = 10
	DefaultWelcome       = "Hola, soy {{bot_name}}. ¿En qué puedo ayudarte hoy?"
	DefaultFallback      = "Lo siento, no pude procesar tu solicitud."
	// DemoWebhookURL is used by the demo tenant when LEXFLOW_DEMO_WEBHOOK_URL is unset.
	DemoWebhookURL = "https://n8n.example.com/webhook/lexflow-demo"
)

// Tenant is the configuration of one law firm's chat widget.
type Tenant struct {
	ID            string         `yaml:"id"`
	Name          string         `yaml:"name"`
	WebhookURL    string         `yaml:"webhookUrl"`
	MaxFileSizeMB int            `yaml:"maxFileSizeMB"`
	UI            UI             `yaml:"ui"`
	Messages      Messages       `yaml:"messages"`
	Features      Features       `yaml:"features"`
	BusinessHours booking.Hours  `yaml:"businessHours"`
	Settings      map[string]any `yaml:"settings"`
}

type UI struct {
	Title    string `yaml:"title"`
	Subtitle string `yaml:"subtitle"`
	Slogan   string `yaml:"slogan"`
}

type Messages struct {
	Welcome         string   `yaml:"welcome"`
	Suggestions     []string `yaml:"suggestions"`
	Fallback        string   `yaml:"fallback"`
	RecoveryOptions []string `yaml:"recoveryOptions"`
	RateLimited     string   `yaml:"rateLimited"`
	FileTooLarge    string   `yaml:"fileTooLarge"`
	Cancelled       string   `yaml:"cancelled"`
}

type Features struct {
	Voice    bool `yaml:"voice"`
	Files    bool `yaml:"files"`
	Calendar bool `yaml:"calendar"`
}

//go:embed demo.yaml
var demoYAML []byte

var (
	envVarPattern  = regexp.MustCompile(`\$\{([^}]+)\}`)
	botNamePattern = regexp.MustCompile(`(?i)\{\{bot_name\}\}`)
	uiTitlePattern = regexp.MustCompile(`(?i)\{\{ui_title\}\}`)
)

// Parse decodes a tenant from YAML, expanding ${ENV} references and
// applying defaults.
func Parse(data []byte) (*Tenant, error) {
	var t Tenant
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), &t); err != nil {
		return nil, errors.Wrap(err, "tenant config: parse")
	}
	t.applyDefaults()
	if strings.TrimSpace(t.ID) == "" {
		return nil, errors.New("tenant config: id is empty")
	}
	return &t, nil
}

// Load reads a tenant YAML file.
func Load(path string) (*Tenant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "tenant config: read")
	}
	return Parse(data)
}

// Demo returns the built-in demonstration tenant.
func Demo() *Tenant {
	t, err := Parse(demoYAML)
	if err != nil {
		panic(errors.Wrap(err, "embedded demo tenant"))
	}
	if strings.HasPrefix(t.WebhookURL, "${") || t.WebhookURL == "" {
		t.WebhookURL = DemoWebhookURL
	}
	return t
}

func expandEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		name := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match
	})
}

func (t *Tenant) applyDefaults() {
	t.ID = strings.TrimSpace(t.ID)
	t.WebhookURL = strings.TrimSpace(t.WebhookURL)
	if t.MaxFileSizeMB <= 0 {
		t.MaxFileSizeMB = DefaultMaxFileSizeMB
	}
	t.BusinessHours = t.BusinessHours.Normalize()
	if strings.TrimSpace(t.Messages.Welcome) == "" {
		t.Messages.Welcome = DefaultWelcome
	}
	if strings.TrimSpace(t.Messages.Fallback) == "" {
		t.Messages.Fallback = DefaultFallback
	}
	t.Messages.Welcome = t.renderTemplate(t.Messages.Welcome)
	if t.Settings == nil {
		t.Settings = map[string]any{}
	}
}

func (t *Tenant) renderTemplate(s string) string {
	name := t.Name
	if strings.TrimSpace(name) == "" {
		name = "tu asistente"
	}
	title := t.UI.Title
	if strings.TrimSpace(title) == "" {
		title = "Asistente"
	}
	s = botNamePattern.ReplaceAllLiteralString(s, name)
	return uiTitlePattern.ReplaceAllLiteralString(s, title)
}

// SessionTexts maps the tenant's messages onto the session manager's texts.
// Unset fields keep the session defaults.
func (t *Tenant) SessionTexts() session.Texts {
	if t == nil {
		return session.DefaultTexts()
	}
	return session.Texts{
		Welcome:         t.Messages.Welcome,
		Suggestions:     append([]string(nil), t.Messages.Suggestions...),
		Fallback:        t.Messages.Fallback,
		RecoveryOptions: append([]string(nil), t.Messages.RecoveryOptions...),
		RateLimited:     t.Messages.RateLimited,
		FileTooLarge:    t.Messages.FileTooLarge,
		Cancelled:       t.Messages.Cancelled,
	}
}

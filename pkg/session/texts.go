package session

import (
	"strconv"
	"strings"
)

// Texts holds every user-visible string the manager produces on its own.
// Empty fields fall back to DefaultTexts.
type Texts struct {
	Welcome            string
	Suggestions        []string
	DefaultSuggestions []string
	Fallback           string
	RecoveryOptions    []string
	RateLimited        string
	// FileTooLarge may contain {{max_mb}}.
	FileTooLarge string
	Cancelled    string
}

func DefaultTexts() Texts {
	return Texts{
		Welcome:            "Hola, ¿en qué puedo ayudarte hoy?",
		DefaultSuggestions: []string{"Servicios", "Contacto", "Agendar una consulta"},
		Fallback:           "Lo siento, hubo un problema de conexión. Por favor, intenta de nuevo.",
		RecoveryOptions:    []string{"Intentar de nuevo", "Hablar con un abogado"},
		RateLimited:        "Estás enviando mensajes muy rápido. Espera un momento antes de volver a intentarlo.",
		FileTooLarge:       "El archivo supera el tamaño máximo permitido de {{max_mb}} MB.",
		Cancelled:          "Solicitud cancelada.",
	}
}

func (t Texts) withDefaults() Texts {
	d := DefaultTexts()
	if strings.TrimSpace(t.Welcome) == "" {
		t.Welcome = d.Welcome
	}
	if len(t.DefaultSuggestions) == 0 {
		t.DefaultSuggestions = d.DefaultSuggestions
	}
	if strings.TrimSpace(t.Fallback) == "" {
		t.Fallback = d.Fallback
	}
	if len(t.RecoveryOptions) == 0 {
		t.RecoveryOptions = d.RecoveryOptions
	}
	if strings.TrimSpace(t.RateLimited) == "" {
		t.RateLimited = d.RateLimited
	}
	if strings.TrimSpace(t.FileTooLarge) == "" {
		t.FileTooLarge = d.FileTooLarge
	}
	if strings.TrimSpace(t.Cancelled) == "" {
		t.Cancelled = d.Cancelled
	}
	return t
}

func (t Texts) fileTooLarge(maxMB int) string {
	return strings.ReplaceAll(t.FileTooLarge, "{{max_mb}}", strconv.Itoa(maxMB))
}

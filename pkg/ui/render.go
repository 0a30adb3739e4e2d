package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/go-go-golems/lexflow/pkg/booking"
	"github.com/go-go-golems/lexflow/pkg/chat"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFDF5")).Background(lipgloss.Color("#0f3460")).Padding(0, 1)
	subtitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C6A87C"))
	userStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C6A87C"))
	botStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	optionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("246")).PaddingLeft(2)
	metaStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Italic(true)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#AFAFAF"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	slotStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	busySlotStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Strikethrough(true)
)

// markdownRenderer renders bot text; nil falls back to plain text.
type markdownRenderer interface {
	Render(in string) (string, error)
}

func newMarkdownRenderer(width int) markdownRenderer {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return r
}

// renderTranscript lays the conversation out for the viewport.
func renderTranscript(msgs []chat.Message, botName string, md markdownRenderer) string {
	if botName == "" {
		botName = "Asistente"
	}
	var sb strings.Builder
	for i, m := range msgs {
		if i > 0 {
			sb.WriteString("\n")
		}
		stamp := m.Timestamp.Local().Format("15:04")
		if m.IsUser() {
			sb.WriteString(userStyle.Render("Tú") + " " + metaStyle.Render(stamp) + "\n")
			if m.Text != "" {
				sb.WriteString(m.Text + "\n")
			}
			if m.Attachment != nil {
				sb.WriteString(metaStyle.Render(fmt.Sprintf("📎 %s (%s)", m.Attachment.Name, m.Attachment.Type)) + "\n")
			}
			continue
		}

		sb.WriteString(botStyle.Render(botName) + " " + metaStyle.Render(stamp) + "\n")
		sb.WriteString(renderBotText(m.Text, md))
		for j, o := range m.Options {
			sb.WriteString(optionStyle.Render(fmt.Sprintf("[%d] %s", j+1, o)) + "\n")
		}
		if m.PaymentLink != "" {
			line := "Pago: " + m.PaymentLink
			if m.PaymentAmount != "" {
				line += " (" + m.PaymentAmount + ")"
			}
			sb.WriteString(metaStyle.Render(line) + "\n")
		}
		if m.Image != "" {
			sb.WriteString(metaStyle.Render("Imagen: "+m.Image) + "\n")
		}
		if m.Video != "" {
			sb.WriteString(metaStyle.Render("Video: "+m.Video) + "\n")
		}
		if m.Action == "schedule_appointment" {
			sb.WriteString(metaStyle.Render("Escribe /book para ver horarios disponibles") + "\n")
		}
	}
	return sb.String()
}

func renderBotText(text string, md markdownRenderer) string {
	if text == "" {
		return ""
	}
	if md != nil {
		if out, err := md.Render(text); err == nil {
			return strings.TrimRight(out, "\n") + "\n"
		}
	}
	return text + "\n"
}

func renderSlots(date string, slots []booking.Slot) string {
	if len(slots) == 0 {
		return metaStyle.Render("Sin horarios disponibles para " + date)
	}
	var parts []string
	for i, s := range slots {
		label := fmt.Sprintf("[%d] %s", i+1, s.Time)
		if s.Available {
			parts = append(parts, slotStyle.Render(label))
		} else {
			parts = append(parts, busySlotStyle.Render(label))
		}
	}
	return metaStyle.Render("Horarios "+date+":") + "\n" + strings.Join(parts, "  ")
}

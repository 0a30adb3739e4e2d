package ui

import (
	"strconv"
	"strings"

	"github.com/go-go-golems/lexflow/pkg/booking"
	"github.com/go-go-golems/lexflow/pkg/chat"
)

type commandKind int

const (
	cmdNone commandKind = iota
	cmdSend
	cmdClear
	cmdAbort
	cmdFile
	cmdBook
	cmdQuit
	cmdHelp
)

type command struct {
	kind commandKind
	// text is the message to send, arg the command argument (path, date).
	text string
	arg  string
}

// parseInput interprets one line typed by the visitor. A bare number picks a
// pending booking slot, or else a quick reply of the last bot message.
func parseInput(line string, last *chat.Message, slots []booking.Slot) command {
	line = strings.TrimSpace(line)
	if line == "" {
		return command{kind: cmdNone}
	}

	if strings.HasPrefix(line, "/") {
		name, rest, _ := strings.Cut(line[1:], " ")
		rest = strings.TrimSpace(rest)
		switch strings.ToLower(name) {
		case "clear":
			return command{kind: cmdClear}
		case "abort", "cancel":
			return command{kind: cmdAbort}
		case "quit", "exit":
			return command{kind: cmdQuit}
		case "help":
			return command{kind: cmdHelp}
		case "book":
			return command{kind: cmdBook, arg: rest}
		case "file":
			path, text, _ := strings.Cut(rest, " ")
			return command{kind: cmdFile, arg: path, text: strings.TrimSpace(text)}
		}
		return command{kind: cmdSend, text: line}
	}

	if n, err := strconv.Atoi(line); err == nil {
		if len(slots) > 0 {
			if n >= 1 && n <= len(slots) && slots[n-1].Available {
				return command{kind: cmdBook, arg: slots[n-1].Time}
			}
		} else if last != nil && n >= 1 && n <= len(last.Options) {
			return command{kind: cmdSend, text: last.Options[n-1]}
		}
	}
	return command{kind: cmdSend, text: line}
}

// lastBot returns the newest bot message of msgs.
func lastBot(msgs []chat.Message) *chat.Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].IsBot() {
			m := msgs[i]
			return &m
		}
	}
	return nil
}

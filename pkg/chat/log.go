package chat

// Log is the ordered conversation history. It only grows by Append or is
// replaced wholesale by Reset; entries are never edited in place.
type Log struct {
	messages []Message
}

func NewLog(messages ...Message) *Log {
	l := &Log{}
	l.Reset(messages...)
	return l
}

func (l *Log) Append(m Message) {
	if l == nil {
		return
	}
	l.messages = append(l.messages, m.Clone())
}

func (l *Log) Reset(messages ...Message) {
	if l == nil {
		return
	}
	l.messages = make([]Message, 0, len(messages)+16)
	for _, m := range messages {
		l.messages = append(l.messages, m.Clone())
	}
}

func (l *Log) Len() int {
	if l == nil {
		return 0
	}
	return len(l.messages)
}

// Snapshot returns a copy of the log.
func (l *Log) Snapshot() []Message {
	if l == nil {
		return nil
	}
	out := make([]Message, len(l.messages))
	for i, m := range l.messages {
		out[i] = m.Clone()
	}
	return out
}

// Tail returns a copy of the most recent n messages, in order.
func (l *Log) Tail(n int) []Message {
	return TailOf(l.Snapshot(), n)
}

// Last returns the newest message.
func (l *Log) Last() (Message, bool) {
	if l == nil || len(l.messages) == 0 {
		return Message{}, false
	}
	return l.messages[len(l.messages)-1].Clone(), true
}

// TailOf keeps the most recent n entries of messages. n <= 0 keeps everything.
func TailOf(messages []Message, n int) []Message {
	if n <= 0 || len(messages) <= n {
		return messages
	}
	return messages[len(messages)-n:]
}

package runtime

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/lexflow/pkg/events"
	"github.com/go-go-golems/lexflow/pkg/logging"
	"github.com/go-go-golems/lexflow/pkg/session"
	"github.com/go-go-golems/lexflow/pkg/ui"
)

// ChatBuilder wires a session manager, its event stream and the bubbletea
// chat model into a runnable program.
type ChatBuilder struct {
	ctx            context.Context
	manager        *session.Manager
	subscriber     message.Subscriber
	topic          string
	programOptions []tea.ProgramOption
	modelOptions   ui.ModelOptions
}

func NewChatBuilder() *ChatBuilder {
	return &ChatBuilder{ctx: context.Background(), topic: events.DefaultTopic}
}

func (b *ChatBuilder) WithContext(ctx context.Context) *ChatBuilder {
	if ctx != nil {
		b.ctx = ctx
	}
	return b
}

func (b *ChatBuilder) WithManager(m *session.Manager) *ChatBuilder {
	b.manager = m
	return b
}

// WithSubscriber sets where session events are read from. Without it the UI
// only refreshes when a send finishes.
func (b *ChatBuilder) WithSubscriber(sub message.Subscriber, topic string) *ChatBuilder {
	b.subscriber = sub
	if topic != "" {
		b.topic = topic
	}
	return b
}

func (b *ChatBuilder) WithProgramOptions(opts ...tea.ProgramOption) *ChatBuilder {
	b.programOptions = append(b.programOptions, opts...)
	return b
}

func (b *ChatBuilder) WithModelOptions(opts ui.ModelOptions) *ChatBuilder {
	b.modelOptions = opts
	return b
}

// ChatSession holds the runtime pieces of one interactive chat.
type ChatSession struct {
	Backend *ui.SessionBackend
	Program *tea.Program

	router *message.Router
}

// BuildProgram creates the backend, model, program and, when a subscriber is
// configured, a watermill router forwarding session events to the program.
func (b *ChatBuilder) BuildProgram() (*ChatSession, error) {
	if b.manager == nil {
		return nil, errors.New("session manager is required; use WithManager")
	}

	backend := ui.NewSessionBackend(b.manager)
	model := ui.NewModel(b.ctx, backend, b.modelOptions)
	program := tea.NewProgram(model, b.programOptions...)

	cs := &ChatSession{Backend: backend, Program: program}
	if b.subscriber != nil {
		router, err := message.NewRouter(message.RouterConfig{}, logging.NewWatermillLogger(log.Logger))
		if err != nil {
			return nil, errors.Wrap(err, "failed to create watermill router")
		}
		router.AddNoPublisherHandler("ui-forward", b.topic, b.subscriber, ui.ForwardFunc(program))
		cs.router = router
	}
	return cs, nil
}

// Run runs the program until it quits. The event router, if any, is stopped
// when the program exits.
func (cs *ChatSession) Run(ctx context.Context) error {
	if cs == nil || cs.Program == nil {
		return errors.New("chat session is not built")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if cs.router == nil {
		_, err := cs.Program.Run()
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return cs.router.Run(ctx)
	})
	eg.Go(func() error {
		defer cancel()
		<-cs.router.Running()
		_, err := cs.Program.Run()
		return err
	})
	err := eg.Wait()
	if cerr := cs.router.Close(); cerr != nil {
		log.Debug().Err(cerr).Msg("closing event router")
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

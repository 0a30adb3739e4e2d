package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/lexflow/pkg/chat"
	"github.com/go-go-golems/lexflow/pkg/events"
	"github.com/go-go-golems/lexflow/pkg/identity"
	"github.com/go-go-golems/lexflow/pkg/persistence/chatstore"
	"github.com/go-go-golems/lexflow/pkg/persistence/kvstore"
	"github.com/go-go-golems/lexflow/pkg/ratelimit"
	"github.com/go-go-golems/lexflow/pkg/webhook"
)

const (
	DefaultMaxFileSizeMB = 10
	DefaultRetryDelay    = 2 * time.Second
)

var (
	ErrAlreadyOpen  = errors.New("session: already open")
	ErrNotOpen      = errors.New("session: not open")
	ErrRateLimited  = errors.New("session: rate limited")
	ErrFileTooLarge = errors.New("session: file too large")
)

type Outcome string

const (
	// OutcomeIgnored means nothing happened: empty input or a send in flight.
	OutcomeIgnored   Outcome = "ignored"
	OutcomeRejected  Outcome = "rejected"
	OutcomeDelivered Outcome = "delivered"
	OutcomeFailed    Outcome = "failed"
	OutcomeAborted   Outcome = "aborted"
)

// Result reports how a SendMessage call ended. Reply is the bot message
// appended for it, if any.
type Result struct {
	Outcome Outcome
	Reply   *chat.Message
	Err     error
}

type Options struct {
	ClientID string
	// ExternalSessionID, when set, is used as is and never rotated.
	ExternalSessionID string

	Store     kvstore.Store
	Transport webhook.Transport
	IDs       identity.IDGenerator
	Sink      events.Sink
	Limiter   *ratelimit.SlidingWindow

	Texts         Texts
	MaxFileSizeMB int
	HistoryLimit  int
	RetryDelay    time.Duration
	Inactivity    time.Duration

	PageURL  string
	Metadata map[string]any

	Now func() time.Time
}

// Manager owns one conversation: its identity, its log and the single
// request that may be in flight.
type Manager struct {
	mu sync.Mutex

	clientID   string
	external   string
	transport  webhook.Transport
	ids        identity.IDGenerator
	sink       events.Sink
	limiter    *ratelimit.SlidingWindow
	identity   *identity.Store
	history    *chatstore.HistoryStore
	texts      Texts
	maxBytes   int64
	maxMB      int
	retryDelay time.Duration
	pageURL    string
	metadata   map[string]any
	now        func() time.Time

	opened   bool
	sess     chat.Session
	log      *chat.Log
	state    chat.State
	inflight *pendingRequest
}

type pendingRequest struct {
	cancel context.CancelFunc
}

func New(opts Options) (*Manager, error) {
	if opts.Transport == nil {
		return nil, errors.New("session: transport is nil")
	}
	clientID := strings.TrimSpace(opts.ClientID)
	if clientID == "" {
		return nil, errors.New("session: client id is empty")
	}
	store := opts.Store
	if store == nil {
		store = kvstore.NewMemoryStore()
	}
	ids := opts.IDs
	if ids == nil {
		ids = identity.UUIDGenerator{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = ratelimit.New(ratelimit.DefaultWindow, ratelimit.DefaultLimit, ratelimit.WithClock(now))
	}
	maxMB := opts.MaxFileSizeMB
	if maxMB <= 0 {
		maxMB = DefaultMaxFileSizeMB
	}
	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}

	return &Manager{
		clientID:  clientID,
		external:  strings.TrimSpace(opts.ExternalSessionID),
		transport: opts.Transport,
		ids:       ids,
		sink:      opts.Sink,
		limiter:   limiter,
		identity: identity.NewStore(store, clientID,
			identity.WithIDGenerator(ids),
			identity.WithClock(now),
			identity.WithInactivity(opts.Inactivity)),
		history:    chatstore.NewHistoryStore(store, opts.HistoryLimit),
		texts:      opts.Texts.withDefaults(),
		maxBytes:   int64(maxMB) * 1024 * 1024,
		maxMB:      maxMB,
		retryDelay: retryDelay,
		pageURL:    opts.PageURL,
		metadata:   opts.Metadata,
		now:        now,
		log:        chat.NewLog(),
		state:      chat.StateIdle,
	}, nil
}

// Open resolves identity and loads the persisted log. A manager can be
// opened once; later calls return ErrAlreadyOpen.
func (m *Manager) Open(ctx context.Context) error {
	if m == nil {
		return errors.New("session: manager is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	m.mu.Lock()
	if m.opened {
		m.mu.Unlock()
		return ErrAlreadyOpen
	}
	m.opened = true
	m.sess = chat.Session{
		ClientID:  m.clientID,
		VisitorID: m.identity.VisitorID(ctx),
		SessionID: m.identity.SessionID(ctx, m.external),
		External:  m.external != "",
	}

	msgs, found, err := m.history.Load(ctx, m.sess.SessionID)
	if err != nil {
		log.Warn().Err(err).Str("session_id", m.sess.SessionID).Msg("could not load history, starting fresh")
	}
	if err != nil || !found || len(msgs) == 0 {
		msgs = []chat.Message{m.welcomeLocked(chat.WelcomeID)}
	}
	m.log.Reset(msgs...)
	m.saveLocked(ctx)
	sess := m.sess
	n := m.log.Len()
	m.mu.Unlock()

	log.Info().
		Str("client_id", sess.ClientID).
		Str("session_id", sess.SessionID).
		Str("visitor_id", sess.VisitorID).
		Int("messages", n).
		Msg("session opened")
	m.emit(ctx, events.Event{Type: events.TypeSessionOpened})
	return nil
}

// SendMessage submits one visitor turn and blocks until it is answered,
// fails, or is aborted. The conversation always ends back in idle.
func (m *Manager) SendMessage(ctx context.Context, text string, file *webhook.File) Result {
	if m == nil {
		return Result{Outcome: OutcomeIgnored, Err: errors.New("session: manager is nil")}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(text) == "" && file == nil {
		return Result{Outcome: OutcomeIgnored}
	}

	m.mu.Lock()
	if !m.opened {
		m.mu.Unlock()
		return Result{Outcome: OutcomeIgnored, Err: ErrNotOpen}
	}
	if m.state.Busy() {
		m.mu.Unlock()
		return Result{Outcome: OutcomeIgnored}
	}

	if m.limiter.IsLimited() {
		reply := m.appendBotLocked(ctx, m.texts.RateLimited, nil)
		sid := m.sess.SessionID
		m.mu.Unlock()
		log.Warn().Str("session_id", sid).Msg("message rejected by rate limiter")
		m.emitMessage(ctx, reply)
		return Result{Outcome: OutcomeRejected, Reply: &reply, Err: ErrRateLimited}
	}
	if file != nil && file.Len() > m.maxBytes {
		reply := m.appendBotLocked(ctx, m.texts.fileTooLarge(m.maxMB), nil)
		m.mu.Unlock()
		log.Warn().Str("file", file.Name).Int64("size", file.Len()).Msg("attachment rejected, too large")
		m.emitMessage(ctx, reply)
		return Result{
			Outcome: OutcomeRejected,
			Reply:   &reply,
			Err:     errors.Wrapf(ErrFileTooLarge, "%s is %d bytes, limit %d MB", file.Name, file.Len(), m.maxMB),
		}
	}

	now := m.now()
	user := chat.NewUserMessage(m.ids.NewID(), text, file.Attachment(), now)
	m.log.Append(user)
	m.limiter.RecordAttempt()

	state := chat.StateSending
	action := webhook.ActionUserMessage
	if file != nil {
		state = chat.StateAnalyzing
		action = webhook.ActionFileUpload
	}
	m.state = state

	reqCtx, cancel := context.WithCancel(ctx)
	p := &pendingRequest{cancel: cancel}
	m.inflight = p

	req := &webhook.Request{
		SessionID: m.sess.SessionID,
		Text:      text,
		ClientID:  m.sess.ClientID,
		VisitorID: m.sess.VisitorID,
		Metadata:  webhook.MetadataEnvelope(m.sess, m.pageURL, now, m.metadata),
		Action:    action,
		File:      file,
	}
	m.saveLocked(ctx)
	m.mu.Unlock()

	m.emitMessage(ctx, user)
	m.emit(ctx, events.Event{Type: events.TypeStateChanged, State: state})

	raw, err := m.deliver(reqCtx, req)

	m.mu.Lock()
	if m.inflight != p {
		// AbortRequest or ClearHistory took over and already reset the state.
		m.mu.Unlock()
		cancel()
		return Result{Outcome: OutcomeAborted}
	}
	m.inflight = nil
	m.state = chat.StateIdle
	aborted := err != nil && reqCtx.Err() != nil
	cancel()

	var res Result
	switch {
	case aborted:
		reply := m.appendBotLocked(ctx, m.texts.Cancelled, nil)
		res = Result{Outcome: OutcomeAborted, Reply: &reply}
	case err != nil:
		reply := m.appendBotLocked(ctx, m.texts.Fallback, m.texts.RecoveryOptions)
		res = Result{Outcome: OutcomeFailed, Reply: &reply, Err: errors.Wrap(err, "session: delivery failed")}
	default:
		reply := webhook.Normalize(raw).Message(m.ids.NewID(), m.now())
		m.log.Append(reply)
		m.saveLocked(ctx)
		if !m.sess.External {
			m.identity.Touch(context.WithoutCancel(ctx))
		}
		res = Result{Outcome: OutcomeDelivered, Reply: &reply}
	}
	sid := m.sess.SessionID
	m.mu.Unlock()

	if res.Outcome == OutcomeFailed {
		log.Error().Err(err).Str("session_id", sid).Msg("webhook delivery failed")
	}
	m.emitMessage(ctx, *res.Reply)
	m.emit(ctx, events.Event{Type: events.TypeStateChanged, State: chat.StateIdle})
	return res
}

// deliver posts req, retrying once after the back-off. Cancellation of ctx
// is honored both during the request and during the back-off.
func (m *Manager) deliver(ctx context.Context, req *webhook.Request) (any, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			log.Debug().Str("session_id", req.SessionID).Dur("delay", m.retryDelay).Msg("retrying webhook request")
			timer := time.NewTimer(m.retryDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
		raw, err := m.transport.Post(ctx, req)
		if err == nil {
			return raw, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt+1).Str("session_id", req.SessionID).Msg("webhook request failed")
	}
	return nil, lastErr
}

// AbortRequest cancels the request in flight and appends one cancellation
// notice. It reports false when nothing was in flight.
func (m *Manager) AbortRequest() bool {
	if m == nil {
		return false
	}
	ctx := context.Background()
	m.mu.Lock()
	if m.inflight == nil {
		m.mu.Unlock()
		return false
	}
	m.inflight.cancel()
	m.inflight = nil
	m.state = chat.StateIdle
	reply := m.appendBotLocked(ctx, m.texts.Cancelled, nil)
	sid := m.sess.SessionID
	m.mu.Unlock()

	log.Info().Str("session_id", sid).Msg("request aborted")
	m.emitMessage(ctx, reply)
	m.emit(ctx, events.Event{Type: events.TypeStateChanged, State: chat.StateIdle})
	return true
}

// ClearHistory drops the conversation and starts over with a fresh welcome.
// Any request in flight is cancelled without a notice. Unless the session id
// came from the host, a new session id is issued.
func (m *Manager) ClearHistory(ctx context.Context) error {
	if m == nil {
		return errors.New("session: manager is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	m.mu.Lock()
	if !m.opened {
		m.mu.Unlock()
		return ErrNotOpen
	}
	if m.inflight != nil {
		m.inflight.cancel()
		m.inflight = nil
	}
	m.state = chat.StateIdle

	old := m.sess.SessionID
	if err := m.history.Clear(ctx, old); err != nil {
		log.Warn().Err(err).Str("session_id", old).Msg("could not clear persisted history")
	}
	if !m.sess.External {
		m.identity.Forget(ctx)
		m.sess.SessionID = m.identity.SessionID(ctx, "")
	}

	welcome := m.welcomeLocked(chat.WelcomeResetID)
	m.log.Reset(welcome)
	m.limiter.Reset()
	m.saveLocked(ctx)
	sid := m.sess.SessionID
	m.mu.Unlock()

	log.Info().Str("old_session_id", old).Str("session_id", sid).Msg("history cleared")
	m.emit(ctx, events.Event{Type: events.TypeHistoryCleared})
	m.emitMessage(ctx, welcome)
	return nil
}

// Messages returns a copy of the conversation log.
func (m *Manager) Messages() []chat.Message {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.log.Snapshot()
}

func (m *Manager) State() chat.State {
	if m == nil {
		return chat.StateIdle
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) IsBusy() bool {
	return m.State().Busy()
}

func (m *Manager) Session() chat.Session {
	if m == nil {
		return chat.Session{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess
}

// Texts returns the effective user-visible strings.
func (m *Manager) Texts() Texts {
	if m == nil {
		return DefaultTexts()
	}
	return m.texts
}

// welcomeLocked builds the seed message. Tenants without suggestions get the
// generic set.
func (m *Manager) welcomeLocked(id string) chat.Message {
	suggestions := m.texts.Suggestions
	if len(suggestions) == 0 {
		suggestions = m.texts.DefaultSuggestions
	}
	return chat.NewBotMessage(id, m.texts.Welcome, suggestions, m.now())
}

func (m *Manager) appendBotLocked(ctx context.Context, text string, options []string) chat.Message {
	msg := chat.NewBotMessage(m.ids.NewID(), text, options, m.now())
	m.log.Append(msg)
	m.saveLocked(ctx)
	return msg
}

// saveLocked persists the log. Failures are logged; the in-memory log stays
// authoritative.
func (m *Manager) saveLocked(ctx context.Context) {
	if err := m.history.Save(context.WithoutCancel(ctx), m.sess.SessionID, m.log.Snapshot()); err != nil {
		log.Warn().Err(err).Str("session_id", m.sess.SessionID).Msg("could not persist history")
	}
}

func (m *Manager) emitMessage(ctx context.Context, msg chat.Message) {
	m.emit(ctx, events.Event{Type: events.TypeMessageAppended, Message: &msg})
}

func (m *Manager) emit(ctx context.Context, e events.Event) {
	if m.sink == nil {
		return
	}
	sess := m.Session()
	e.ClientID = sess.ClientID
	e.SessionID = sess.SessionID
	e.VisitorID = sess.VisitorID
	if e.Timestamp.IsZero() {
		e.Timestamp = m.now()
	}
	if err := m.sink.Publish(context.WithoutCancel(ctx), e); err != nil {
		log.Warn().Err(err).Str("event", string(e.Type)).Msg("could not publish session event")
	}
}

package cmds

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/lexflow/pkg/booking"
	"github.com/go-go-golems/lexflow/pkg/config"
	"github.com/go-go-golems/lexflow/pkg/events"
	"github.com/go-go-golems/lexflow/pkg/persistence/kvstore"
	"github.com/go-go-golems/lexflow/pkg/redisstream"
	"github.com/go-go-golems/lexflow/pkg/session"
	"github.com/go-go-golems/lexflow/pkg/webhook"
)

var timeNow = time.Now

// AddGlobalFlags registers the flags shared by every subcommand.
func AddGlobalFlags(cmd *cobra.Command) {
	fs := cmd.PersistentFlags()
	fs.String("tenant", "", "Tenant YAML file, or a directory of <client-id>.yaml files (demo tenant when empty)")
	fs.String("client-id", "", "Client id of the tenant (defaults to the tenant's id)")
	fs.String("session-id", "", "Use this session id instead of the persisted one")
	fs.String("webhook-url", "", "Override the tenant webhook URL")
	fs.String("store", kvstore.BackendSQLite, "Key-value store backend (memory, sqlite, redis)")
	fs.String("db", "", "SQLite file for the sqlite store (default ~/.lexflow/lexflow.db)")
	fs.String("redis-addr", "localhost:6379", "Redis address for the redis store and event stream")
	fs.String("redis-prefix", "lexflow:", "Key prefix for the redis store")
	fs.Bool("redis-events", false, "Publish session events on Redis Streams instead of in-process")
	fs.String("redis-group", "lexflow", "Redis consumer group for session events")
	fs.String("redis-consumer", "cli-1", "Redis consumer name for session events")
	fs.StringToString("metadata", nil, "Extra metadata sent with every message (k=v,...)")
	fs.String("page-url", "", "Page URL reported in the metadata envelope")
	fs.Duration("http-timeout", webhook.DefaultTimeout, "HTTP client timeout for webhook calls")
}

// Register adds all subcommands to root.
func Register(root *cobra.Command) {
	root.AddCommand(
		newChatCommand(),
		newSendCommand(),
		newHistoryCommand(),
		newClearCommand(),
		newSlotsCommand(),
		newAbandonCommand(),
	)
}

// App is everything a subcommand needs, built from flags.
type App struct {
	Tenant     *config.Tenant
	Store      kvstore.Store
	Events     *events.PubSub
	Sink       *events.WatermillSink
	Manager    *session.Manager
	HTTPClient *http.Client
	Metadata   map[string]any
	PageURL    string
}

func loadTenant(ctx context.Context, v *viper.Viper) (*config.Tenant, error) {
	path := config.ExpandPath(v.GetString("tenant"))
	clientID := strings.TrimSpace(v.GetString("client-id"))

	var tenant *config.Tenant
	switch {
	case path == "":
		p := config.NewStaticProvider()
		t, err := p.Fetch(ctx, config.DemoID)
		if err != nil {
			return nil, err
		}
		tenant = t
	default:
		st, err := os.Stat(path)
		if err != nil {
			return nil, errors.Wrap(err, "tenant")
		}
		if st.IsDir() {
			id := clientID
			if id == "" {
				id = config.DemoID
			}
			tenant, err = config.NewFileProvider(path).Fetch(ctx, id)
		} else {
			tenant, err = config.Load(path)
		}
		if err != nil {
			return nil, err
		}
	}

	if u := strings.TrimSpace(v.GetString("webhook-url")); u != "" {
		tenant.WebhookURL = u
	}
	if clientID != "" {
		tenant.ID = clientID
	}
	return tenant, nil
}

// NewApp builds the store, event stream and session manager, and opens the
// session. Callers must Close it.
func NewApp(ctx context.Context) (*App, error) {
	v := viper.GetViper()

	tenant, err := loadTenant(ctx, v)
	if err != nil {
		return nil, err
	}
	if tenant.WebhookURL == "" {
		return nil, errors.New("tenant has no webhook url; set webhookUrl or --webhook-url")
	}

	dbPath := v.GetString("db")
	if strings.TrimSpace(dbPath) == "" {
		dbPath = config.DefaultDBPath()
	}
	store, err := kvstore.Open(kvstore.Settings{
		Backend:     v.GetString("store"),
		SQLitePath:  config.ExpandPath(dbPath),
		RedisAddr:   v.GetString("redis-addr"),
		RedisPrefix: v.GetString("redis-prefix"),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open store")
	}

	ps, err := events.BuildPubSub(ctx, redisstream.Settings{
		Enabled:  v.GetBool("redis-events"),
		Addr:     v.GetString("redis-addr"),
		Group:    v.GetString("redis-group"),
		Consumer: v.GetString("redis-consumer"),
	})
	if err != nil {
		_ = store.Close()
		return nil, errors.Wrap(err, "build event stream")
	}
	sink := events.NewWatermillSink(ps.Publisher, events.DefaultTopic)

	metadata := map[string]any{}
	for k, val := range v.GetStringMapString("metadata") {
		metadata[k] = val
	}
	httpClient := &http.Client{Timeout: v.GetDuration("http-timeout")}

	mgr, err := session.New(session.Options{
		ClientID:          tenant.ID,
		ExternalSessionID: v.GetString("session-id"),
		Store:             store,
		Transport:         webhook.NewHTTPTransport(tenant.WebhookURL, httpClient),
		Sink:              sink,
		Texts:             tenant.SessionTexts(),
		MaxFileSizeMB:     tenant.MaxFileSizeMB,
		PageURL:           v.GetString("page-url"),
		Metadata:          metadata,
	})
	if err != nil {
		_ = ps.Close()
		_ = store.Close()
		return nil, err
	}
	if err := mgr.Open(ctx); err != nil {
		_ = ps.Close()
		_ = store.Close()
		return nil, err
	}

	return &App{
		Tenant:     tenant,
		Store:      store,
		Events:     ps,
		Sink:       sink,
		Manager:    mgr,
		HTTPClient: httpClient,
		Metadata:   metadata,
		PageURL:    v.GetString("page-url"),
	}, nil
}

// Booking returns an availability client, or nil when the tenant has the
// calendar disabled.
func (a *App) Booking() *booking.Client {
	if a == nil || a.Tenant == nil || !a.Tenant.Features.Calendar {
		return nil
	}
	return booking.NewClient(a.Tenant.WebhookURL, a.Tenant.BusinessHours, a.HTTPClient)
}

// SendAbandon fires the abandonment beacon for the current session.
func (a *App) SendAbandon(ctx context.Context) error {
	sess := a.Manager.Session()
	meta := webhook.MetadataEnvelope(sess, a.PageURL, timeNow(), a.Metadata)
	p, err := webhook.NewAbandonPayload(sess.SessionID, sess.ClientID, sess.VisitorID, meta)
	if err != nil {
		return err
	}
	return webhook.NewBeacon(a.HTTPClient).Send(ctx, a.Tenant.WebhookURL, p)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Events != nil {
		if err := a.Events.Close(); err != nil {
			log.Debug().Err(err).Msg("closing event stream")
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			log.Debug().Err(err).Msg("closing store")
		}
	}
}

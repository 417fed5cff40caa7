package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/julianstephens/weekplan/internal/backup"
	"github.com/julianstephens/weekplan/internal/config"
	"github.com/julianstephens/weekplan/internal/constants"
	"github.com/julianstephens/weekplan/internal/keyring"
	"github.com/julianstephens/weekplan/internal/logger"
	"github.com/julianstephens/weekplan/internal/metrics"
	"github.com/julianstephens/weekplan/internal/notify"
	"github.com/julianstephens/weekplan/internal/schedule"
	"github.com/julianstephens/weekplan/internal/storage"
	"github.com/julianstephens/weekplan/internal/storage/jsonfile"
	"github.com/julianstephens/weekplan/internal/storage/postgres"
	"github.com/julianstephens/weekplan/internal/storage/sqlite"
)

type StoreKind string

const (
	KindSQLite   StoreKind = "sqlite"
	KindJSON     StoreKind = "json"
	KindPostgres StoreKind = "postgres"
)

// Target is a resolved store location.
type Target struct {
	Kind     StoreKind
	Location string
	// Source says where Location came from: flag, config, environment,
	// keyring or default.
	Source string
}

// FilePath returns the store file for file-backed targets.
func (t Target) FilePath() (string, bool) {
	if t.Kind == KindPostgres {
		return "", false
	}
	return t.Location, true
}

// Key identifies the store without credentials. Sessions on the same key
// share documents.
func (t Target) Key() string {
	if t.Kind != KindPostgres {
		if abs, err := filepath.Abs(t.Location); err == nil {
			return abs
		}
		return t.Location
	}
	if postgres.IsConnString(t.Location) {
		if u, err := url.Parse(t.Location); err == nil {
			return "postgresql://" + u.Host + u.Path
		}
	}
	var host, dbname string
	for _, part := range strings.Fields(t.Location) {
		k, v, _ := strings.Cut(part, "=")
		switch strings.ToLower(k) {
		case "host":
			host = v
		case "dbname":
			dbname = v
		}
	}
	return "postgresql://" + host + "/" + dbname
}

func isPostgresTarget(s string) bool {
	return postgres.IsConnString(s) || strings.Contains(s, "host=")
}

// ResolveTarget picks the store from, in order: the --store flag, a
// non-default store in the config, WEEKPLAN_DB_CONNECTION or the keyring,
// and finally the default SQLite path.
func ResolveTarget(flag string, cfg *config.Config) (Target, error) {
	raw, source := strings.TrimSpace(flag), "flag"
	if raw == "" && cfg != nil && cfg.Store != "" && cfg.Store != constants.DefaultConfigPath {
		raw, source = cfg.Store, "config"
	}
	if raw == "" {
		connStr, src, err := keyring.ResolveConnectionString()
		switch {
		case err == nil:
			raw, source = connStr, string(src)
		case errors.Is(err, keyring.ErrNotFound), errors.Is(err, keyring.ErrKeyringUnavailable):
			logger.Debug("No stored connection string", "error", err)
		default:
			return Target{}, err
		}
	}
	if raw == "" {
		raw, source = constants.DefaultConfigPath, "default"
	}

	if isPostgresTarget(raw) {
		err := postgres.ValidateConnString(raw)
		// The environment and the keyring are trusted to hold passwords.
		trusted := source == string(keyring.SourceEnv) || source == string(keyring.SourceKeyring)
		if err != nil && !(trusted && errors.Is(err, postgres.ErrEmbeddedCredentials)) {
			if errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return Target{}, fmt.Errorf("%w: store the connection string with 'weekplan keyring set' or %s, or use .pgpass",
					err, constants.ConnectionEnvVar)
			}
			return Target{}, err
		}
		return Target{Kind: KindPostgres, Location: raw, Source: source}, nil
	}

	path := config.ExpandHome(raw)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return Target{Kind: KindJSON, Location: path, Source: source}, nil
	}
	return Target{Kind: KindSQLite, Location: path, Source: source}, nil
}

// NewStore returns an unopened provider for t.
func NewStore(t Target) storage.Provider {
	switch t.Kind {
	case KindPostgres:
		return postgres.New(t.Location)
	case KindJSON:
		return jsonfile.NewStore(t.Location)
	default:
		return sqlite.NewStore(t.Location)
	}
}

type Context struct {
	Ctx         context.Context
	Config      *config.Config
	Target      Target
	Store       storage.Provider
	Schedule    string
	SessionsDir string
	Out         io.Writer
	Err         io.Writer
	In          io.Reader

	listeners []schedule.Listener
	closers   []func()
}

// NewContext builds a command context for target using cfg.
func NewContext(ctx context.Context, cfg *config.Config, target Target) *Context {
	return &Context{
		Ctx:         ctx,
		Config:      cfg,
		Target:      target,
		Store:       NewStore(target),
		Schedule:    cfg.Schedule,
		SessionsDir: filepath.Join(config.ExpandHome(constants.DefaultConfigDir), constants.SessionsDirName),
		Out:         os.Stdout,
		Err:         os.Stderr,
		In:          os.Stdin,
	}
}

// EnableMetrics instruments the store and serves /metrics on addr until
// ctx is done.
func (c *Context) EnableMetrics(addr string) error {
	rec, err := metrics.NewRecorder(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	c.Store = metrics.NewInstrumentedStore(c.Store, rec)
	c.listeners = append(c.listeners, rec.Listener())

	go func() {
		if err := metrics.Serve(c.Ctx, addr, prometheus.DefaultGatherer); err != nil {
			logger.Warn("Metrics endpoint stopped", "addr", addr, "error", err)
		}
	}()
	logger.Debug("Serving metrics", "addr", addr)
	return nil
}

// EnableMQTT publishes schedule events to the configured broker.
func (c *Context) EnableMQTT(cfg config.MQTTConfig) error {
	pub, err := notify.Connect(cfg, c.Schedule)
	if err != nil {
		return err
	}
	c.listeners = append(c.listeners, pub.Listener())
	c.closers = append(c.closers, pub.Close)
	return nil
}

// Subscribe adds a listener to every schedule opened through c.
func (c *Context) Subscribe(l schedule.Listener) {
	c.listeners = append(c.listeners, l)
}

// OpenSchedule loads the configured schedule and attaches listeners. A
// non-nil model may come with an error wrapping schedule.ErrStoreUnavailable
// when the initial document could not be saved.
func (c *Context) OpenSchedule() (*schedule.Model, error) {
	m, err := schedule.Open(c.Ctx, c.Store, c.Schedule)
	if m == nil {
		return nil, err
	}
	for _, l := range c.listeners {
		m.Subscribe(l)
	}
	return m, err
}

// PerformAutomaticBackup creates a backup of a file store and only logs
// failures.
func (c *Context) PerformAutomaticBackup() {
	path, ok := c.Target.FilePath()
	if !ok {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	if _, err := backup.NewManager(path).Create(); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// Close releases the store and any publishers.
func (c *Context) Close() error {
	for _, fn := range c.closers {
		fn()
	}
	c.closers = nil
	return c.Store.Close()
}

// Printf writes to the command output.
func (c *Context) Printf(format string, args ...any) {
	fmt.Fprintf(c.Out, format, args...)
}

// Confirm asks a yes/no question on c.In. Anything but y or yes is no.
func (c *Context) Confirm(prompt string) (bool, error) {
	c.Printf("%s [y/N]: ", prompt)
	response, err := bufio.NewReader(c.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes", nil
}

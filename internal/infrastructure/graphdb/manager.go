// Package graphdb owns the Neo4j driver pool: connection lifecycle, scoped
// sessions and the retry policy every graph query runs under.
package graphdb

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v6/neo4j"
	"github.com/neo4j/neo4j-go-driver/v6/neo4j/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/fishgraph/fishgraph-api/internal/domain/apperr"
	"github.com/fishgraph/fishgraph-api/internal/domain/repository"
	"github.com/fishgraph/fishgraph-api/internal/infrastructure/resilience"
)

var tracer = otel.Tracer("github.com/fishgraph/fishgraph-api/internal/infrastructure/graphdb")

// Pool defaults.
const (
	DefaultMaxConnectionLifetime        = 3 * time.Hour
	DefaultMaxConnectionPoolSize        = 50
	DefaultConnectionAcquisitionTimeout = 30 * time.Second
)

// Config describes the target database and pool bounds.
type Config struct {
	URI      string
	Username string
	Password string
	Database string

	MaxConnectionLifetime        time.Duration
	MaxConnectionPoolSize        int
	ConnectionAcquisitionTimeout time.Duration

	RetryAttempts int
	RetryDelay    time.Duration
	// RetryAllErrors retries structural query errors too. Off by default:
	// only connectivity and Neo4j transient errors are retried.
	RetryAllErrors bool
}

// AccessMode selects the routing of a session.
type AccessMode int

const (
	AccessRead AccessMode = iota
	AccessWrite
)

func (m AccessMode) String() string {
	if m == AccessWrite {
		return "write"
	}
	return "read"
}

// Session is a leased connection. Close must be called exactly once.
type Session interface {
	Run(ctx context.Context, cypher string, params map[string]any) ([]repository.Row, error)
	Close(ctx context.Context) error
}

// Manager is the process-wide pool handle. Construct one at startup, pass it to
// every request path and Close it at shutdown.
type Manager struct {
	cfg Config

	mu     sync.RWMutex
	driver neo4j.Driver
	open   func(ctx context.Context, mode AccessMode) (Session, error)
}

// NewManager fills unset pool and retry bounds with the defaults. It does not
// touch the network; call Connect.
func NewManager(cfg Config) *Manager {
	if cfg.MaxConnectionLifetime <= 0 {
		cfg.MaxConnectionLifetime = DefaultMaxConnectionLifetime
	}
	if cfg.MaxConnectionPoolSize <= 0 {
		cfg.MaxConnectionPoolSize = DefaultMaxConnectionPoolSize
	}
	if cfg.ConnectionAcquisitionTimeout <= 0 {
		cfg.ConnectionAcquisitionTimeout = DefaultConnectionAcquisitionTimeout
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = resilience.DefaultAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = resilience.DefaultDelay
	}
	return &Manager{cfg: cfg}
}

// Connect creates the driver pool and verifies connectivity. On an already
// connected manager it only re-verifies.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.driver != nil {
		if err := m.driver.VerifyConnectivity(ctx); err != nil {
			return apperr.Connectivity("Connect", fmt.Errorf("verify %s: %w", m.cfg.URI, err))
		}
		return nil
	}

	driver, err := neo4j.NewDriver(m.cfg.URI, neo4j.BasicAuth(m.cfg.Username, m.cfg.Password, ""),
		func(c *config.Config) {
			c.MaxConnectionLifetime = m.cfg.MaxConnectionLifetime
			c.MaxConnectionPoolSize = m.cfg.MaxConnectionPoolSize
			c.ConnectionAcquisitionTimeout = m.cfg.ConnectionAcquisitionTimeout
		})
	if err != nil {
		return apperr.Connectivity("Connect", fmt.Errorf("create driver for %s: %w", m.cfg.URI, err))
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		if closeErr := driver.Close(ctx); closeErr != nil {
			log.Printf("[Neo4j] Warning: failed to close driver after connectivity check: %v", closeErr)
		}
		return apperr.Connectivity("Connect", fmt.Errorf("verify %s: %w", m.cfg.URI, err))
	}

	m.driver = driver
	m.open = func(ctx context.Context, mode AccessMode) (Session, error) {
		return newDriverSession(ctx, driver, m.cfg.Database, mode), nil
	}
	log.Printf("[Neo4j] Connected to %s as %s (pool=%d, lifetime=%s, acquire timeout=%s)",
		m.cfg.URI, m.cfg.Username, m.cfg.MaxConnectionPoolSize, m.cfg.MaxConnectionLifetime, m.cfg.ConnectionAcquisitionTimeout)
	return nil
}

// AcquireSession leases a session from the pool. Prefer WithSession, which
// guarantees the release.
func (m *Manager) AcquireSession(ctx context.Context, mode AccessMode) (Session, error) {
	m.mu.RLock()
	open := m.open
	m.mu.RUnlock()

	if open == nil {
		return nil, apperr.Connectivity("AcquireSession", errors.New("driver not initialized, call Connect first"))
	}
	return open(ctx, mode)
}

// WithSession runs fn on a leased session and releases it on every exit path,
// panics included.
func (m *Manager) WithSession(ctx context.Context, mode AccessMode, fn func(Session) error) error {
	sess, err := m.AcquireSession(ctx, mode)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := sess.Close(context.WithoutCancel(ctx)); closeErr != nil {
			log.Printf("[Neo4j] Warning: failed to release session: %v", closeErr)
		}
	}()
	return fn(sess)
}

// Run executes a read statement under the retry policy. It implements
// repository.QueryRunner.
func (m *Manager) Run(ctx context.Context, cypher string, params map[string]any) ([]repository.Row, error) {
	return resilience.Do(ctx, m.retryPolicy("run"), func(ctx context.Context) ([]repository.Row, error) {
		return m.runOnce(ctx, AccessRead, cypher, params)
	})
}

// Execute runs a write statement under the retry policy and discards its records.
func (m *Manager) Execute(ctx context.Context, cypher string, params map[string]any) error {
	_, err := resilience.Do(ctx, m.retryPolicy("execute"), func(ctx context.Context) ([]repository.Row, error) {
		return m.runOnce(ctx, AccessWrite, cypher, params)
	})
	return err
}

// Ping checks end-to-end connectivity with a trivial statement.
func (m *Manager) Ping(ctx context.Context) error {
	_, err := m.Run(ctx, "RETURN 1 AS ok", nil)
	return err
}

// Close releases the pool. Safe on a closed or never-connected manager.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.open = nil
	if m.driver == nil {
		return nil
	}
	driver := m.driver
	m.driver = nil
	if err := driver.Close(ctx); err != nil {
		return fmt.Errorf("close neo4j driver: %w", err)
	}
	log.Printf("[Neo4j] Driver closed")
	return nil
}

func (m *Manager) runOnce(ctx context.Context, mode AccessMode, cypher string, params map[string]any) ([]repository.Row, error) {
	ctx, span := tracer.Start(ctx, "graphdb."+mode.String())
	defer span.End()
	span.SetAttributes(attribute.String("db.system", "neo4j"), attribute.String("db.name", m.cfg.Database))

	var rows []repository.Row
	err := m.WithSession(ctx, mode, func(s Session) error {
		var err error
		rows, err = s.Run(ctx, cypher, params)
		return err
	})
	if err != nil {
		err = classify(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, apperr.KindOf(err).String())
		return nil, err
	}
	span.SetAttributes(attribute.Int("db.rows", len(rows)))
	return rows, nil
}

func (m *Manager) retryPolicy(name string) resilience.RetryPolicy {
	p := resilience.RetryPolicy{
		Name:      "neo4j " + name,
		Attempts:  m.cfg.RetryAttempts,
		Delay:     m.cfg.RetryDelay,
		Retryable: isTransient,
	}
	if m.cfg.RetryAllErrors {
		p.Retryable = nil
	}
	return p
}

// classify maps driver failures onto the error taxonomy.
func classify(err error) error {
	if apperr.KindOf(err) != apperr.KindUnknown {
		return err
	}
	if isConnectivity(err) {
		return apperr.Connectivity("Run", err)
	}
	return apperr.Query("Run", err)
}

// isConnectivity looks through wrapping; neo4j.IsConnectivityError only
// inspects the outermost error.
func isConnectivity(err error) bool {
	var connErr *neo4j.ConnectivityError
	return errors.As(err, &connErr)
}

func isTransient(err error) bool {
	if apperr.KindOf(err) == apperr.KindConnectivity || isConnectivity(err) {
		return true
	}
	var neoErr *neo4j.Neo4jError
	if errors.As(err, &neoErr) {
		return strings.HasPrefix(neoErr.Code, "Neo.TransientError")
	}
	return false
}

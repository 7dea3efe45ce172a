// Package snowflake implements the query backend on Snowflake.
//
// Snowflake statements are synchronous over database/sql, so the client
// runs each submitted statement on a pooled connection in its own goroutine
// and tracks it in an in-process execution registry. Callers see the same
// submit, poll, fetch contract as with Athena.
package snowflake

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/snowflakedb/gosnowflake" // Snowflake driver

	"github.com/ignite/lead-finder/internal/config"
	"github.com/ignite/lead-finder/internal/pkg/logger"
	"github.com/ignite/lead-finder/internal/query"
)

// ErrUnknownQuery is returned for ids the registry does not hold.
var ErrUnknownQuery = errors.New("unknown query execution")

const (
	defaultStatementTimeout = 2 * time.Minute
	// Executions nobody fetched are dropped after this long.
	registryRetention = 15 * time.Minute
)

type execution struct {
	state    query.State
	reason   string
	rows     [][]*string
	finished time.Time
}

// Client adapts a Snowflake database to query.Backend.
type Client struct {
	db      *sql.DB
	timeout time.Duration
	log     *logger.Logger

	mu    sync.Mutex
	execs map[string]*execution
	now   func() time.Time
}

var _ query.Backend = (*Client)(nil)

// NewClient opens a Snowflake connection pool.
func NewClient(cfg config.SnowflakeConfig) (*Client, error) {
	db, err := sql.Open("snowflake", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open snowflake connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return NewClientWithDB(db), nil
}

// NewClientWithDB wraps an existing pool.
func NewClientWithDB(db *sql.DB) *Client {
	return &Client{
		db:      db,
		timeout: defaultStatementTimeout,
		log:     logger.Named("snowflake"),
		execs:   make(map[string]*execution),
		now:     time.Now,
	}
}

// Close closes the database connection
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping tests the database connection
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Submit registers the statement and starts it in the background. The
// statement outlives ctx cancellation but is bounded by the client's
// statement timeout. outputLocation is unused.
func (c *Client) Submit(ctx context.Context, queryText, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()

	c.mu.Lock()
	c.sweepLocked()
	c.execs[id] = &execution{state: query.StateQueued}
	c.mu.Unlock()

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	go func() {
		defer cancel()
		c.run(runCtx, id, queryText)
	}()
	return id, nil
}

func (c *Client) run(ctx context.Context, id, queryText string) {
	c.setState(id, query.StateRunning, "", nil)

	rows, err := c.db.QueryContext(ctx, queryText)
	if err != nil {
		c.log.Warn("snowflake statement failed", "query_id", id, "error", err)
		c.setState(id, query.StateFailed, err.Error(), nil)
		return
	}
	defer rows.Close()

	out, err := readRows(rows)
	if err != nil {
		c.setState(id, query.StateFailed, err.Error(), nil)
		return
	}
	c.setState(id, query.StateSucceeded, "", out)
}

// readRows returns the column names as row 0 followed by every data row.
func readRows(rows *sql.Rows) ([][]*string, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	header := make([]*string, len(cols))
	for i := range cols {
		name := cols[i]
		header[i] = &name
	}

	out := [][]*string{header}
	for rows.Next() {
		vals := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		cells := make([]*string, len(cols))
		for i, v := range vals {
			if v.Valid {
				s := v.String
				cells[i] = &s
			}
		}
		out = append(out, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

func (c *Client) setState(id string, state query.State, reason string, rows [][]*string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.execs[id]
	if !ok {
		return
	}
	e.state = state
	e.reason = reason
	e.rows = rows
	if state.Terminal() {
		e.finished = c.now()
	}
}

// sweepLocked drops finished executions older than registryRetention.
func (c *Client) sweepLocked() {
	cutoff := c.now().Add(-registryRetention)
	for id, e := range c.execs {
		if e.state.Terminal() && e.finished.Before(cutoff) {
			delete(c.execs, id)
		}
	}
}

// Status reports the registry state of queryID.
func (c *Client) Status(_ context.Context, queryID string) (query.StatusInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.execs[queryID]
	if !ok {
		return query.StatusInfo{}, fmt.Errorf("%w: %s", ErrUnknownQuery, queryID)
	}
	return query.StatusInfo{State: e.state, Reason: e.reason}, nil
}

// ResultRows returns the rows of a succeeded execution and forgets it.
func (c *Client) ResultRows(_ context.Context, queryID string) ([][]*string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.execs[queryID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownQuery, queryID)
	}
	if e.state != query.StateSucceeded {
		return nil, fmt.Errorf("query %s is %s", queryID, e.state)
	}
	delete(c.execs, queryID)
	return e.rows, nil
}

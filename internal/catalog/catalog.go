package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/VoxelHeimGame/db-cluster/internal/util/retry"
)

// Catalog queries. Worker membership always comes from
// citus_get_active_worker_nodes(); LoadQuery reads the worker count and the
// coordinator's connection count in one round trip.
const (
	PingQuery          = "SELECT 1"
	ActiveWorkersQuery = "SELECT node_name, node_port FROM citus_get_active_worker_nodes()"
	WorkerCountQuery   = "SELECT count(*) FROM citus_get_active_worker_nodes()"
	LoadQuery          = `SELECT
		(SELECT count(*) FROM citus_get_active_worker_nodes()) AS worker_count,
		(SELECT count(*) FROM pg_stat_activity) AS total_connections`
	AddNodeQuery   = "SELECT * FROM citus_add_node($1, $2)"
	RebalanceQuery = "SELECT rebalance_table_shards()"
)

// ErrUnavailable is returned when the catalog cannot be reached.
var ErrUnavailable = errors.New("catalog unavailable")

// WorkerNode is a registered shard-serving node.
type WorkerNode struct {
	Name string `json:"node_name"`
	Port int    `json:"node_port"`
}

// LoadSample is a single observation of cluster load.
type LoadSample struct {
	WorkerCount      int
	TotalConnections int
}

// Catalog is the control-plane interface of the distributed database.
type Catalog interface {
	Ping(ctx context.Context) error
	ActiveWorkers(ctx context.Context) ([]WorkerNode, error)
	WorkerCount(ctx context.Context) (int, error)
	SampleLoad(ctx context.Context) (LoadSample, error)
	AddNode(ctx context.Context, host string, port int) error
	RebalanceShards(ctx context.Context) error
}

// querier is the subset of *pgxpool.Pool used by PostgresCatalog.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

// PostgresCatalog implements Catalog against a Citus coordinator.
type PostgresCatalog struct {
	db           querier
	queryTimeout time.Duration
}

// Options configures Connect.
type Options struct {
	MaxConns       int32
	ConnectRetries int
	QueryTimeout   time.Duration
}

// Connect opens a connection pool to the catalog and waits until it answers.
func Connect(ctx context.Context, url string, opts Options) (*PostgresCatalog, *pgxpool.Pool, error) {
	logger := logr.FromContextOrDiscard(ctx)

	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse catalog url: %w", err)
	}
	if opts.MaxConns > 0 {
		poolConfig.MaxConns = opts.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create catalog pool: %w", err)
	}

	err = retry.WithExponentialBackoff(ctx, func() error {
		return pool.Ping(ctx)
	},
		retry.WithMaxRetries(opts.ConnectRetries),
		retry.WithInitialDelay(500*time.Millisecond),
		retry.WithMaxDelay(5*time.Second),
		retry.WithOnRetry(func(attempt int, delay time.Duration, err error) {
			logger.Info("catalog not reachable yet, retrying", "attempt", attempt, "delay", delay, "error", err.Error())
		}),
	)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	logger.Info("connected to catalog", "host", poolConfig.ConnConfig.Host, "database", poolConfig.ConnConfig.Database)
	return New(pool, opts.QueryTimeout), pool, nil
}

// New wraps an existing pool.
func New(db querier, queryTimeout time.Duration) *PostgresCatalog {
	return &PostgresCatalog{db: db, queryTimeout: queryTimeout}
}

func (c *PostgresCatalog) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.queryTimeout)
}

// Ping checks that the catalog answers a trivial query.
func (c *PostgresCatalog) Ping(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var one int
	if err := c.db.QueryRow(ctx, PingQuery).Scan(&one); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// ActiveWorkers lists the active worker nodes in registry order.
func (c *PostgresCatalog) ActiveWorkers(ctx context.Context) ([]WorkerNode, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	rows, err := c.db.Query(ctx, ActiveWorkersQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query active workers: %w", err)
	}
	workers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (WorkerNode, error) {
		var w WorkerNode
		err := row.Scan(&w.Name, &w.Port)
		return w, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read active workers: %w", err)
	}
	return workers, nil
}

// WorkerCount returns the number of active workers.
func (c *PostgresCatalog) WorkerCount(ctx context.Context) (int, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var count int64
	if err := c.db.QueryRow(ctx, WorkerCountQuery).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active workers: %w", err)
	}
	return int(count), nil
}

// SampleLoad reads the worker count and total connection count in one query.
func (c *PostgresCatalog) SampleLoad(ctx context.Context) (LoadSample, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var workers, conns int64
	if err := c.db.QueryRow(ctx, LoadQuery).Scan(&workers, &conns); err != nil {
		return LoadSample{}, fmt.Errorf("failed to sample load: %w", err)
	}
	return LoadSample{WorkerCount: int(workers), TotalConnections: int(conns)}, nil
}

// AddNode registers host:port as a worker node.
func (c *PostgresCatalog) AddNode(ctx context.Context, host string, port int) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if _, err := c.db.Exec(ctx, AddNodeQuery, host, port); err != nil {
		return fmt.Errorf("failed to add node %s:%d: %w", host, port, err)
	}
	return nil
}

// RebalanceShards redistributes shards across the current workers.
// Rebalancing can run for a long time, so it is not bounded by the query timeout.
func (c *PostgresCatalog) RebalanceShards(ctx context.Context) error {
	if _, err := c.db.Exec(ctx, RebalanceQuery); err != nil {
		return fmt.Errorf("failed to rebalance shards: %w", err)
	}
	return nil
}

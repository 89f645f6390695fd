package postgres

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type execCall struct {
	sql  string
	args []any
}

// mockTx records statements. Methods not overridden panic via the nil
// embedded interface, which flags unexpected driver use in tests.
type mockTx struct {
	pgx.Tx

	mu         sync.Mutex
	execs      []execCall
	execErr    func(sql string) error
	commitErr  error
	committed  bool
	rolledBack bool
	rollbackOK bool // rollback context was still live
	savepoints []*mockTx
	beginErr   error
}

func (m *mockTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.execs = append(m.execs, execCall{sql: sql, args: args})
	if m.execErr != nil {
		if err := m.execErr(sql); err != nil {
			return pgconn.CommandTag{}, err
		}
	}
	return pgconn.NewCommandTag("SELECT 1"), nil
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.beginErr != nil {
		return nil, m.beginErr
	}
	sp := &mockTx{execErr: m.execErr}
	m.savepoints = append(m.savepoints, sp)
	return sp, nil
}

func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	m.committed = true
	return nil
}

func (m *mockTx) Rollback(ctx context.Context) error {
	if m.committed {
		return pgx.ErrTxClosed
	}
	m.rolledBack = true
	m.rollbackOK = ctx.Err() == nil
	return nil
}

// mockConn is a pooled connection that keeps every transaction it opened,
// so tests can inspect statements across reuse.
type mockConn struct {
	txs      []*mockTx
	newTx    func() *mockTx
	beginErr error
	released int
}

func (c *mockConn) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	if c.beginErr != nil {
		return nil, c.beginErr
	}
	t := &mockTx{}
	if c.newTx != nil {
		t = c.newTx()
	}
	c.txs = append(c.txs, t)
	return t, nil
}

func (c *mockConn) Release() { c.released++ }

func (c *mockConn) lastTx() *mockTx { return c.txs[len(c.txs)-1] }

// mockPool always hands out the same connection, like a pool of size one.
type mockPool struct {
	conn       *mockConn
	checkouts  int
	checkoutFn func(ctx context.Context) error
}

func (p *mockPool) Checkout(ctx context.Context) (PooledConn, error) {
	if p.checkoutFn != nil {
		if err := p.checkoutFn(ctx); err != nil {
			return nil, err
		}
	}
	p.checkouts++
	return p.conn, nil
}

func newMockPool() *mockPool {
	return &mockPool{conn: &mockConn{}}
}

var errBoom = errors.New("boom")

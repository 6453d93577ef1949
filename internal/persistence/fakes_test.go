package persistence

import (
	"context"
	"sync"
)

// callLog records the order of lifecycle calls across a factory, its session
// and its transaction.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) count(call string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type fakeTx struct {
	log           *callLog
	commitErr     error
	rollbackErr   error
	commitPanic   any
	rollbackPanic any
}

func (t *fakeTx) Exec(_ context.Context, _ string, _ ...any) (int64, error) {
	t.log.add("exec")
	return 1, nil
}

func (t *fakeTx) Commit(_ context.Context) error {
	t.log.add("commit")
	if t.commitPanic != nil {
		panic(t.commitPanic)
	}
	return t.commitErr
}

func (t *fakeTx) Rollback(_ context.Context) error {
	t.log.add("rollback")
	if t.rollbackPanic != nil {
		panic(t.rollbackPanic)
	}
	return t.rollbackErr
}

type fakeSession struct {
	log      *callLog
	beginErr error
	tx       *fakeTx
}

func (s *fakeSession) Begin(_ context.Context) (Tx, error) {
	s.log.add("begin")
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	return s.tx, nil
}

func (s *fakeSession) Close() { s.log.add("session.close") }

type fakeFactory struct {
	log        *callLog
	sessionErr error
	pingErr    error
	session    *fakeSession
}

func (f *fakeFactory) CreateSession(_ context.Context) (Session, error) {
	f.log.add("session.open")
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	return f.session, nil
}

func (f *fakeFactory) Ping(_ context.Context) error {
	f.log.add("ping")
	return f.pingErr
}

func (f *fakeFactory) Close() { f.log.add("factory.close") }

// newFakeFactory wires a factory, session and tx that share one callLog.
func newFakeFactory() (*fakeFactory, *callLog) {
	log := &callLog{}
	tx := &fakeTx{log: log}
	session := &fakeSession{log: log, tx: tx}
	return &fakeFactory{log: log, session: session}, log
}

// openerFor returns an OpenFunc that always yields f, or openErr if set.
func openerFor(f Factory, openErr error) OpenFunc {
	return func(_ context.Context) (Factory, error) {
		if openErr != nil {
			return nil, openErr
		}
		return f, nil
	}
}

package db

import (
	"context"
	"database/sql"
)

// Writer serializes audit appends through one goroutine. sqlite admits a
// single writer at a time; routing every transaction here means the
// authority's per-connection goroutines and the orchestrator never fight
// over the database lock.
type Writer struct {
	conn    *sql.DB
	pending chan writeReq
	stopped chan struct{}
}

type writeReq struct {
	ctx    context.Context
	fn     func(ctx context.Context, tx *sql.Tx) error
	result chan error
}

func NewWriter(conn *sql.DB) *Writer {
	w := &Writer{
		conn:    conn,
		pending: make(chan writeReq, 256),
		stopped: make(chan struct{}),
	}
	go w.run()
	return w
}

// Close drains the queue and stops the goroutine.
func (w *Writer) Close() {
	close(w.pending)
	<-w.stopped
}

// Do runs fn inside a transaction on the writer goroutine and waits for
// the outcome. If ctx expires first the caller unblocks, while the
// transaction still runs to completion; its result lands in the buffered
// channel and is dropped.
func (w *Writer) Do(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	req := writeReq{ctx: ctx, fn: fn, result: make(chan error, 1)}

	select {
	case w.pending <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) run() {
	defer close(w.stopped)

	for req := range w.pending {
		tx, err := w.conn.BeginTx(req.ctx, nil)
		if err != nil {
			req.result <- err
			continue
		}
		if err := req.fn(req.ctx, tx); err != nil {
			_ = tx.Rollback()
			req.result <- err
			continue
		}
		req.result <- tx.Commit()
	}
}

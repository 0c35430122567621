package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *stubTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *stubTx) Rollback(context.Context) error {
	if t.committed {
		return pgx.ErrTxClosed
	}
	t.rolledBack = true
	return nil
}

type stubBeginner struct {
	tx   *stubTx
	opts pgx.TxOptions
}

func (b *stubBeginner) BeginTx(_ context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	b.opts = opts
	return b.tx, nil
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	b := &stubBeginner{tx: &stubTx{}}
	err := WithTx(context.Background(), b, func(pgx.Tx) error { return nil })
	require.NoError(t, err)
	assert.True(t, b.tx.committed)
	assert.False(t, b.tx.rolledBack)
	assert.Equal(t, pgx.ReadCommitted, b.opts.IsoLevel)
}

func TestWithTxOptionsRollsBackOnError(t *testing.T) {
	b := &stubBeginner{tx: &stubTx{}}
	boom := errors.New("boom")
	err := WithTxOptions(context.Background(), b, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(pgx.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, b.tx.committed)
	assert.True(t, b.tx.rolledBack)
	assert.Equal(t, pgx.Serializable, b.opts.IsoLevel)
}

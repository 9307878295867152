// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package spool implements a broker backed by a local pebble database.
package spool

import (
	"errors"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/xmidt-org/causaltrace/delivery"
	"github.com/xmidt-org/causaltrace/publisher"
	"github.com/xmidt-org/sallust"
	"go.uber.org/zap"
)

// Separator joins a topic and a record key into a spool key
const Separator = '/'

var (
	ErrNoDataDir = errors.New("spool: Options.DataDir is required")
	ErrClosed    = errors.New("spool: closed")
)

// Options configures a Spool
type Options struct {
	// DataDir is the path to the pebble database directory
	DataDir string `json:"dataDir"`

	// Sync forces a WAL sync on every write
	Sync bool `json:"sync"`

	// PebbleOptions allows tuning of the underlying database.  If nil, pebble's defaults are used.
	PebbleOptions *pebble.Options `json:"-"`

	// Logger is the spool's logger.  If nil, the default logger is used.
	Logger *zap.Logger `json:"-"`
}

// Spool is a broker that durably appends trace records to a local pebble database.
// Records are keyed by topic and publish key, so a topic replays in key order.
type Spool struct {
	db           *pebble.DB
	writeOptions *pebble.WriteOptions
	logger       *zap.Logger

	lock    sync.RWMutex
	closed  bool
	writers sync.WaitGroup
}

var _ publisher.Broker = (*Spool)(nil)

// Open creates or opens a Spool
func Open(o Options) (*Spool, error) {
	if len(o.DataDir) == 0 {
		return nil, ErrNoDataDir
	}

	po := o.PebbleOptions
	if po == nil {
		po = &pebble.Options{}
	}

	db, err := pebble.Open(o.DataDir, po)
	if err != nil {
		return nil, err
	}

	s := &Spool{
		db:           db,
		writeOptions: pebble.NoSync,
		logger:       o.Logger,
	}

	if o.Sync {
		s.writeOptions = pebble.Sync
	}

	if s.logger == nil {
		s.logger = sallust.Default()
	}

	return s, nil
}

func spoolKey(topic string, key []byte) []byte {
	k := make([]byte, 0, len(topic)+1+len(key))
	k = append(k, topic...)
	k = append(k, Separator)
	return append(k, key...)
}

// Publish writes the record asynchronously.  The returned handle resolves Delivered once
// the write commits, Rejected if pebble refuses it, or Cancelled if the spool is closed.
func (s *Spool) Publish(topic string, key, payload []byte) delivery.Pending {
	result := delivery.Result{
		Topic:   topic,
		Key:     key,
		Payload: payload,
	}

	s.lock.RLock()
	if s.closed {
		s.lock.RUnlock()
		result.Outcome = delivery.Cancelled
		result.Reason = ErrClosed
		return delivery.Resolved(result)
	}

	s.writers.Add(1)
	s.lock.RUnlock()

	f := delivery.NewFuture()
	go func() {
		defer s.writers.Done()
		if err := s.db.Set(spoolKey(topic, key), payload, s.writeOptions); err != nil {
			s.logger.Error("unable to spool trace record", zap.String("topic", topic), zap.Error(err))
			result.Outcome = delivery.Rejected
			result.Reason = err
		} else {
			result.Outcome = delivery.Delivered
		}

		f.Resolve(result)
	}()

	return f
}

// Each replays every record spooled under the given topic, in key order.  The slices passed
// to f are only valid for the duration of the call.  Iteration stops at the first error
// returned by f.
func (s *Spool) Each(topic string, f func(key, payload []byte) error) (err error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.closed {
		return ErrClosed
	}

	prefix := spoolKey(topic, nil)
	upper := append([]byte(nil), prefix...)
	upper[len(upper)-1]++

	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upper,
	})

	if err != nil {
		return err
	}

	defer func() {
		if closeErr := iter.Close(); err == nil {
			err = closeErr
		}
	}()

	for valid := iter.First(); valid; valid = iter.Next() {
		if err = f(iter.Key()[len(prefix):], iter.Value()); err != nil {
			return
		}
	}

	return
}

// Close waits for outstanding writes and closes the database.  This method is idempotent.
func (s *Spool) Close() error {
	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		return nil
	}

	s.closed = true
	s.lock.Unlock()

	s.writers.Wait()
	return s.db.Close()
}

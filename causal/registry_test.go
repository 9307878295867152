// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package causal

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryNewContextID(t *testing.T) {
	var (
		assert = assert.New(t)
		r      = NewRegistry()
		seen   = make(map[ContextID]bool)
	)

	for i := 0; i < 100; i++ {
		id := r.NewContextID()
		assert.NotZero(id)
		assert.False(seen[id])
		seen[id] = true
	}
}

func TestRegistryRegisterRoot(t *testing.T) {
	var (
		assert  = assert.New(t)
		require = require.New(t)
		r       = NewRegistry(WithFormat(Msgpack))
		c       = r.RegisterRoot(3)
	)

	require.NotNil(c)
	assert.Equal(ContextID(3), c.ContextID())
	assert.Equal(Msgpack, c.Format())
	assert.Equal(1, r.Len())

	actual, err := r.Get(3)
	require.NoError(err)
	assert.Same(c, actual)
}

func TestRegistryRegisterReplacesStaleEntry(t *testing.T) {
	var (
		assert  = assert.New(t)
		require = require.New(t)
		r       = NewRegistry()
		stale   = r.RegisterRoot(5)
		fresh   = New(0)
	)

	stale.Bump()
	r.Register(5, fresh)
	assert.Equal(1, r.Len())
	assert.Equal(ContextID(5), fresh.ContextID())

	actual, err := r.Get(5)
	require.NoError(err)
	assert.Same(fresh, actual)

	assert.Panics(func() {
		r.Register(6, nil)
	})
}

func TestRegistryGetUnregistered(t *testing.T) {
	var (
		assert = assert.New(t)
		r      = NewRegistry()
	)

	r.RegisterRoot(1)
	c, err := r.Get(2)
	assert.Nil(c)
	assert.True(errors.Is(err, ErrUnregisteredContext))

	var uce *UnregisteredContextError
	assert.True(errors.As(err, &uce))
	assert.Equal(ContextID(2), uce.ContextID)
	assert.Equal("no causal clock is registered for context 2", err.Error())

	// the failed lookup must not create a default clock
	assert.Equal(1, r.Len())
	_, err = r.Get(2)
	assert.ErrorIs(err, ErrUnregisteredContext)
}

func TestRegistryCurrent(t *testing.T) {
	var (
		assert  = assert.New(t)
		require = require.New(t)
		r       = NewRegistry()
		root    = r.RegisterRoot(9)
	)

	c, err := r.Current(context.Background())
	assert.Nil(c)
	assert.ErrorIs(err, ErrUnregisteredContext)

	c, err = r.Current(WithContextID(context.Background(), 9))
	require.NoError(err)
	assert.Same(root, c)
}

func TestRegistryForkCurrent(t *testing.T) {
	var (
		assert  = assert.New(t)
		require = require.New(t)
		r       = NewRegistry()
		root    = r.RegisterRoot(r.NewContextID())
	)

	root.Bump()
	root.Bump()
	root.Bump()

	child, err := r.ForkCurrent(root.ContextID())
	require.NoError(err)
	assert.Equal([]uint64{4, 0}, child.Stamp().Path)
	assert.Equal([]uint64{4}, root.Stamp().Path)

	// the child is not registered by the fork
	assert.Equal(1, r.Len())
	assert.Zero(child.ContextID())

	childID := r.NewContextID()
	r.Register(childID, child)
	assert.Equal(2, r.Len())
	assert.Equal(childID, child.ContextID())

	child.Bump()
	child.Bump()
	assert.Equal([]uint64{4, 2}, child.Stamp().Path)

	_, err = r.ForkCurrent(12345)
	assert.ErrorIs(err, ErrUnregisteredContext)
	assert.Equal(2, r.Len())
}

func TestRegistryRelease(t *testing.T) {
	var (
		assert = assert.New(t)
		r      = NewRegistry()
	)

	r.RegisterRoot(1)
	assert.True(r.Release(1))
	assert.False(r.Release(1))
	assert.Zero(r.Len())

	_, err := r.Get(1)
	assert.ErrorIs(err, ErrUnregisteredContext)
}

func TestRegistryConcurrentContexts(t *testing.T) {
	const contexts = 16

	var (
		assert = assert.New(t)
		r      = NewRegistry()
		root   = r.RegisterRoot(r.NewContextID())
		wg     sync.WaitGroup
		paths  = make([][]uint64, contexts)
	)

	wg.Add(contexts)
	for i := 0; i < contexts; i++ {
		child := root.Fork()
		go func(i int, child *Clock) {
			defer wg.Done()
			id := r.NewContextID()
			r.Register(id, child)

			c, err := r.Get(id)
			if !assert.NoError(err) {
				return
			}

			for j := 0; j <= i; j++ {
				c.Bump()
			}

			paths[i] = c.Stamp().Path
		}(i, child)
	}

	wg.Wait()
	assert.Equal(contexts+1, r.Len())
	assert.Equal([]uint64{contexts}, root.Stamp().Path)
	for i, p := range paths {
		assert.Equal([]uint64{uint64(i + 1), uint64(i + 1)}, p)
	}
}

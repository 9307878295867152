// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMicros(t *testing.T) {
	var (
		assert   = assert.New(t)
		testData = []struct {
			value    time.Time
			expected uint64
		}{
			{time.Unix(0, 0), 0},
			{time.Unix(-10, 0), 0},
			{time.Unix(1, 0), 1000000},
			{time.Unix(1700000000, 123456789), 1700000000123456},
		}
	)

	for _, record := range testData {
		t.Logf("%#v", record)
		assert.Equal(record.expected, Micros(record.value))
	}
}

func TestSystem(t *testing.T) {
	var (
		assert  = assert.New(t)
		require = require.New(t)

		c      = System()
		before = time.Now()
		now    = c.Now()
	)

	require.NotNil(c)
	assert.False(now.Before(before))

	ticker := c.NewTicker(time.Millisecond)
	require.NotNil(ticker)
	defer ticker.Stop()

	select {
	case <-ticker.C():
	case <-time.After(5 * time.Second):
		assert.Fail("The ticker did not fire")
	}
}

// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package publisher

import (
	"github.com/stretchr/testify/mock"
	"github.com/xmidt-org/causaltrace/delivery"
)

type mockBroker struct {
	mock.Mock
}

func (m *mockBroker) Publish(topic string, key, payload []byte) delivery.Pending {
	p, _ := m.Called(topic, key, payload).Get(0).(delivery.Pending)
	return p
}

// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package sns

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	awssns "github.com/aws/aws-sdk-go/service/sns"
	"github.com/aws/aws-sdk-go/service/sns/snsiface"
	"github.com/stretchr/testify/mock"
)

type mockSNS struct {
	snsiface.SNSAPI
	mock.Mock
}

func (m *mockSNS) PublishWithContext(ctx aws.Context, input *awssns.PublishInput, _ ...request.Option) (*awssns.PublishOutput, error) {
	arguments := m.Called(ctx, input)
	output, _ := arguments.Get(0).(*awssns.PublishOutput)
	return output, arguments.Error(1)
}

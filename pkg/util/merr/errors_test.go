// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package merr

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"
)

type ErrSuite struct {
	suite.Suite
}

func (s *ErrSuite) TestCode() {
	err := WrapErrRoomNotFound(3)
	errors.Wrap(err, "failed to join room")
	s.ErrorIs(err, ErrRoomNotFound)
	s.Equal(Code(ErrRoomNotFound), Code(err))
	s.Equal(TimeoutCode, Code(context.DeadlineExceeded))
	s.Equal(CanceledCode, Code(context.Canceled))
	s.Equal(errUnexpected.errCode, Code(errUnexpected))
	s.Equal(errUnexpected.errCode, Code(errors.New("plain")))
	s.Equal(int32(0), Code(nil))

	sameCodeErr := newRelayError("new error", ErrRoomNotFound.errCode, false)
	s.True(sameCodeErr.Is(ErrRoomNotFound))
}

func (s *ErrSuite) TestWrap() {
	// Service 相关错误。
	s.ErrorIs(WrapErrServiceNotReady("relay", "starting"), ErrServiceNotReady)
	s.ErrorIs(WrapErrServiceInternal("never throw out"), ErrServiceInternal)
	s.ErrorIs(WrapErrTooManyConnections(10, "pool full"), ErrTooManyConnections)

	// 协议与鉴权相关错误。
	s.ErrorIs(WrapErrProtocolMalformed(1, nil), ErrProtocolMalformed)
	s.ErrorIs(WrapErrProtocolMalformed(1, errors.New("bad json")), ErrProtocolMalformed)
	s.ErrorIs(WrapErrAuthenticationFailed(2), ErrAuthenticationFailed)
	s.ErrorIs(WrapErrNotAuthenticated(2, "Message"), ErrNotAuthenticated)

	// 传输与序列化相关错误。
	s.ErrorIs(WrapErrTransportClosed(3, nil), ErrTransportClosed)
	s.ErrorIs(WrapErrTransportClosed(3, errors.New("eof")), ErrTransportClosed)
	s.ErrorIs(WrapErrSerializationFailed("Message", errors.New("chan")), ErrSerializationFailed)

	// 房间相关错误。
	s.ErrorIs(WrapErrRoomNotFound(9), ErrRoomNotFound)
	s.ErrorIs(WrapErrPlayerAlreadyInRoom("bob", 0), ErrPlayerAlreadyInRoom)

	// 参数相关错误。
	s.ErrorIs(WrapErrParameterInvalid("int", "string"), ErrParameterInvalid)
	s.ErrorIs(WrapErrParameterInvalidRange(0, 1, 2), ErrParameterInvalid)
	s.ErrorIs(WrapErrParameterInvalidMsg("room %d", 5), ErrParameterInvalid)
	s.ErrorIs(WrapErrParameterMissing("username"), ErrParameterMissing)
	s.ErrorIs(WrapErrRouteDuplicated("Identify"), ErrRouteDuplicated)
}

func (s *ErrSuite) TestWrapMessage() {
	err := WrapErrRoomNotFound(4, "join", "login")
	s.Contains(err.Error(), "join->login")
	s.Contains(err.Error(), "room=4")

	err = WrapErrParameterInvalidRange(0, 1, 2)
	s.Contains(err.Error(), "2 out of range 0 <= value <= 1")
}

func (s *ErrSuite) TestIsRetryable() {
	s.True(IsRetryableErr(WrapErrTooManyConnections(1)))
	s.True(IsRetryableErr(errors.Wrap(ErrServiceNotReady, "wrapped")))
	s.False(IsRetryableErr(WrapErrRoomNotFound(1)))
	s.False(IsRetryableErr(errors.New("plain")))
}

func (s *ErrSuite) TestErrorType() {
	s.True(IsInputError(WrapErrProtocolMalformed(1, nil)))
	s.True(IsInputError(WrapErrAuthenticationFailed(1)))
	s.False(IsInputError(WrapErrServiceInternal("boom")))
	s.Equal(SystemError, GetErrorType(errors.New("plain")))
	s.Equal("input_error", InputError.String())
}

func (s *ErrSuite) TestCanceledOrTimeout() {
	s.True(IsCanceledOrTimeout(context.Canceled))
	s.True(IsCanceledOrTimeout(errors.Wrap(context.DeadlineExceeded, "wait")))
	s.False(IsCanceledOrTimeout(ErrTransportClosed))
}

func (s *ErrSuite) TestCombine() {
	var (
		errFirst  = errors.New("first")
		errSecond = errors.New("second")
		errThird  = errors.New("third")
	)

	err := Combine(errFirst, errSecond)
	s.True(errors.Is(err, errFirst))
	s.True(errors.Is(err, errSecond))
	s.False(errors.Is(err, errThird))

	err = Combine(errFirst, nil, errThird)
	s.True(errors.Is(err, errFirst))
	s.True(errors.Is(err, errThird))

	s.Nil(Combine(nil, nil))

	err = Combine(WrapErrRoomNotFound(1), WrapErrAuthenticationFailed(2))
	s.ErrorIs(err, ErrRoomNotFound)
	s.ErrorIs(err, ErrAuthenticationFailed)
	s.Equal(Code(ErrAuthenticationFailed), Code(err))
}

func TestErrors(t *testing.T) {
	suite.Run(t, new(ErrSuite))
}

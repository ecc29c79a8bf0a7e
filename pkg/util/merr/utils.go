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
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Code 返回给定错误对应的错误码，nil 返回 0。
func Code(err error) int32 {
	if err == nil {
		return 0
	}

	cause := errors.Cause(err)
	switch specificErr := cause.(type) {
	case relayError:
		return specificErr.code()

	default:
		if errors.Is(specificErr, context.Canceled) {
			return CanceledCode
		} else if errors.Is(specificErr, context.DeadlineExceeded) {
			return TimeoutCode
		} else {
			return errUnexpected.code()
		}
	}
}

func IsRetryableErr(err error) bool {
	var rerr relayError
	if errors.As(err, &rerr) {
		return rerr.retriable
	}
	return false
}

func IsCanceledOrTimeout(err error) bool {
	return errors.IsAny(err, context.Canceled, context.DeadlineExceeded)
}

// GetErrorType 返回错误的分类，非 relayError 一律视为系统错误。
func GetErrorType(err error) ErrorType {
	var rerr relayError
	if errors.As(err, &rerr) {
		return rerr.errType
	}
	return SystemError
}

// IsInputError 判断错误是否由客户端输入引起。
func IsInputError(err error) bool {
	return GetErrorType(err) == InputError
}

func WrapErrServiceNotReady(role string, state string, msg ...string) error {
	err := wrapFields(ErrServiceNotReady,
		value(role, state),
	)
	return wrapMsg(err, msg...)
}

func WrapErrServiceInternal(reason string, msg ...string) error {
	err := wrapFieldsWithDesc(ErrServiceInternal, reason)
	return wrapMsg(err, msg...)
}

func WrapErrTooManyConnections(limit int, msg ...string) error {
	err := wrapFields(ErrTooManyConnections,
		value("limit", limit),
	)
	return wrapMsg(err, msg...)
}

func WrapErrProtocolMalformed(connID uint64, cause error, msg ...string) error {
	err := wrapFields(ErrProtocolMalformed, value("connID", connID))
	if cause != nil {
		err = wrapFieldsWithDesc(ErrProtocolMalformed, cause.Error(), value("connID", connID))
	}
	return wrapMsg(err, msg...)
}

func WrapErrAuthenticationFailed(connID uint64, msg ...string) error {
	err := wrapFields(ErrAuthenticationFailed, value("connID", connID))
	return wrapMsg(err, msg...)
}

func WrapErrNotAuthenticated(connID uint64, event string, msg ...string) error {
	err := wrapFields(ErrNotAuthenticated,
		value("connID", connID),
		value("event", event),
	)
	return wrapMsg(err, msg...)
}

func WrapErrTransportClosed(connID uint64, cause error) error {
	if cause == nil {
		return wrapFields(ErrTransportClosed, value("connID", connID))
	}
	return wrapFieldsWithDesc(ErrTransportClosed, cause.Error(), value("connID", connID))
}

func WrapErrSerializationFailed(name string, cause error) error {
	return wrapFieldsWithDesc(ErrSerializationFailed, cause.Error(), value("event", name))
}

func WrapErrRoomNotFound(index int, msg ...string) error {
	err := wrapFields(ErrRoomNotFound, value("room", index))
	return wrapMsg(err, msg...)
}

func WrapErrPlayerAlreadyInRoom(username string, index int, msg ...string) error {
	err := wrapFields(ErrPlayerAlreadyInRoom,
		value("username", username),
		value("room", index),
	)
	return wrapMsg(err, msg...)
}

func WrapErrParameterInvalid[T any](expected, actual T, msg ...string) error {
	err := wrapFields(ErrParameterInvalid,
		value("expected", expected),
		value("actual", actual),
	)
	return wrapMsg(err, msg...)
}

func WrapErrParameterInvalidRange[T any](lower, upper, actual T, msg ...string) error {
	err := wrapFields(ErrParameterInvalid,
		bound("value", actual, lower, upper),
	)
	return wrapMsg(err, msg...)
}

func WrapErrParameterInvalidMsg(fmt string, args ...any) error {
	return errors.Wrapf(ErrParameterInvalid, fmt, args...)
}

func WrapErrParameterMissing[T any](param T, msg ...string) error {
	err := wrapFields(ErrParameterMissing,
		value("missing_param", param),
	)
	return wrapMsg(err, msg...)
}

func WrapErrRouteDuplicated(name string) error {
	return wrapFields(ErrRouteDuplicated, value("route", name))
}

func wrapMsg(err error, msg ...string) error {
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func wrapFields(err relayError, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	return err
}

func wrapFieldsWithDesc(err relayError, desc string, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.msg += ": " + desc
	return err
}

type errorField interface {
	String() string
}

type valueField struct {
	name  string
	value any
}

func value(name string, value any) valueField {
	return valueField{
		name,
		value,
	}
}

func (f valueField) String() string {
	return fmt.Sprintf("%s=%v", f.name, f.value)
}

type boundField struct {
	name  string
	value any
	lower any
	upper any
}

func bound(name string, value, lower, upper any) boundField {
	return boundField{
		name,
		value,
		lower,
		upper,
	}
}

func (f boundField) String() string {
	return fmt.Sprintf("%v out of range %v <= %s <= %v", f.value, f.lower, f.name, f.upper)
}

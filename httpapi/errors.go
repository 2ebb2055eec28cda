// Copyright 2026 The Decoupled Resolver Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

// jsonAPIContentType is the media type of every error body.
const jsonAPIContentType = "application/vnd.api+json; charset=utf-8"

// ErrorType lets errors declare their own HTTP status code.
type ErrorType interface {
	error
	HTTPStatus() int
}

// ErrorCode lets errors carry a machine-readable code.
type ErrorCode interface {
	error
	Code() string
}

// RequestError is the concrete error type of this API surface. It satisfies
// both ErrorType and ErrorCode.
type RequestError struct {
	Status  int
	ErrCode string
	Detail  string
}

// Error implements error.
func (e *RequestError) Error() string { return e.Detail }

// HTTPStatus implements ErrorType.
func (e *RequestError) HTTPStatus() int { return e.Status }

// Code implements ErrorCode.
func (e *RequestError) Code() string { return e.ErrCode }

// The failure modes this API distinguishes. Resolution misses are NOT here:
// a not-found path is a successful 200 response with resolved=false.
var (
	// errMissingPath is the client error for a resolve call without a path.
	errMissingPath = &RequestError{
		Status:  http.StatusBadRequest,
		ErrCode: "MISSING_PATH",
		Detail:  "the path query parameter is required",
	}

	// errSecretUnconfigured is the server misconfiguration of an exposed
	// routes feed without a configured secret. Deliberately distinct from an
	// auth failure.
	errSecretUnconfigured = &RequestError{
		Status:  http.StatusInternalServerError,
		ErrCode: "FEED_SECRET_UNCONFIGURED",
		Detail:  "the routes feed is exposed without a configured secret",
	}

	// errSecretMismatch is the client auth failure on the routes feed.
	errSecretMismatch = &RequestError{
		Status:  http.StatusForbidden,
		ErrCode: "SECRET_MISMATCH",
		Detail:  "the routes secret header does not match",
	}

	// errMethodNotAllowed rejects anything but GET.
	errMethodNotAllowed = &RequestError{
		Status:  http.StatusMethodNotAllowed,
		ErrCode: "METHOD_NOT_ALLOWED",
		Detail:  "only GET is supported",
	}
)

// apiError is one member of a JSON:API errors array.
type apiError struct {
	ID     string `json:"id,omitempty"`
	Status string `json:"status,omitempty"`
	Code   string `json:"code,omitempty"`
	Title  string `json:"title,omitempty"`
	Detail string `json:"detail,omitempty"`
}

type errorBody struct {
	Errors []apiError `json:"errors"`
}

// writeError renders any error as a JSON:API error document. Errors that do
// not implement ErrorType render as 500 without leaking their message.
func writeError(w http.ResponseWriter, err error) int {
	status := http.StatusInternalServerError
	var typed ErrorType
	if errors.As(err, &typed) {
		status = typed.HTTPStatus()
	}

	e := apiError{
		ID:     uuid.NewString(),
		Status: strconv.Itoa(status),
		Title:  http.StatusText(status),
	}
	var coded ErrorCode
	if errors.As(err, &coded) {
		e.Code = coded.Code()
		e.Detail = err.Error()
	} else {
		e.Detail = http.StatusText(status)
	}

	w.Header().Set("Content-Type", jsonAPIContentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Errors: []apiError{e}})
	return status
}

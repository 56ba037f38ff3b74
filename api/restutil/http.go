// Copyright (c) 2025 The MeridianStake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package restutil carries the small HTTP plumbing shared by the API
// handlers: error-returning handler funcs and JSON helpers.
package restutil

import (
	"encoding/json"
	"io"
	"net/http"
)

type httpError struct {
	cause  error
	status int
}

func (e *httpError) Error() string {
	return e.cause.Error()
}

// HTTPError creates an error with an http status code.
func HTTPError(cause error, status int) error {
	return &httpError{
		cause:  cause,
		status: status,
	}
}

// BadRequest creates an http bad request error.
func BadRequest(cause error) error {
	return HTTPError(cause, http.StatusBadRequest)
}

// NotFound creates an http not found error.
func NotFound(cause error) error {
	return HTTPError(cause, http.StatusNotFound)
}

// HandlerFunc is like http.HandlerFunc but returns an error. If the
// returned error is an httpError its status is responded, otherwise
// http.StatusInternalServerError.
type HandlerFunc func(http.ResponseWriter, *http.Request) error

// WrapHandlerFunc converts HandlerFunc to http.HandlerFunc.
func WrapHandlerFunc(f HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := f(w, r)
		if err != nil {
			if he, ok := err.(*httpError); ok {
				if he.cause != nil {
					http.Error(w, he.cause.Error(), he.status)
				} else {
					w.WriteHeader(he.status)
				}
			} else {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		}
	}
}

// JSONContentType is the content type of all API responses.
const JSONContentType = "application/json; charset=utf-8"

// ParseJSON parses a JSON object using strict mode.
func ParseJSON(r io.Reader, v interface{}) error {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// WriteJSON responds with an object in JSON encoding.
func WriteJSON(w http.ResponseWriter, obj interface{}) error {
	w.Header().Set("Content-Type", JSONContentType)
	return json.NewEncoder(w).Encode(obj)
}

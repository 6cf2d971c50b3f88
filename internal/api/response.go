// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viper Contributors

package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/viperhq/viper/pkg/errutil"
)

// envelope is the fixed response shape. data exists only on success, error
// only on failure.
type envelope struct {
	Status string         `json:"status"`
	Data   map[string]any `json:"data,omitempty"`
	Error  *errorBody     `json:"error,omitempty"`
}

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// WriteSuccess writes the success envelope with HTTP 200. A nil data map is
// rendered as an empty object.
func WriteSuccess(w http.ResponseWriter, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	writeJSON(w, http.StatusOK, envelope{Status: "success", Data: data})
}

// WriteError writes the failure envelope for the given rejection. Unknown
// error values are masked as the unexpected kind so internals never leak.
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error) {
	apiErr, ok := err.(*Error)
	if !ok {
		errutil.LogError(logger, "unclassified request failure", err)
		apiErr = NewError(KindUnexpected, "Internal error")
	} else if cause := apiErr.Unwrap(); cause != nil {
		errutil.LogError(logger, "request rejected", cause)
	}

	RecordRejection(apiErr.Kind)
	writeJSON(w, apiErr.Kind.HTTPStatus(), envelope{
		Status: "failure",
		Error:  &errorBody{Code: apiErr.Kind.Code(), Message: apiErr.Message},
	})
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck // client may disconnect mid-write
	_ = json.NewEncoder(w).Encode(body)
}

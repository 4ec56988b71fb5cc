// Copyright (C) 2026 CHW Monitor Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/ict4d-health/chwmonitor/services/monitor/datatypes"
	"github.com/ict4d-health/chwmonitor/services/monitor/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestStore returns an empty in-memory store.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(store.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// seedCHW writes a CHW and returns it.
func seedCHW(t *testing.T, s *store.Store, district, village string, active bool) *datatypes.CommunityHealthWorker {
	t.Helper()
	chw := &datatypes.CommunityHealthWorker{
		Name:           "Test CHW",
		Village:        village,
		District:       district,
		Phone:          "+254700000000",
		IsActive:       active,
		DateRegistered: time.Now().AddDate(-1, 0, 0),
	}
	require.NoError(t, s.PutCHW(context.Background(), chw))
	return chw
}

// seedPatient writes a patient assigned to chwID and returns it.
func seedPatient(t *testing.T, s *store.Store, chwID, village string) *datatypes.Patient {
	t.Helper()
	p := &datatypes.Patient{
		Name:    "Test Patient",
		Age:     30,
		Village: village,
		CHWID:   chwID,
	}
	require.NoError(t, s.PutPatient(context.Background(), p))
	return p
}

// doJSON performs a JSON request against the router and returns the recorder.
func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// decodeBody unmarshals a recorder's JSON body into a map.
func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

// requireStatus fails with the response body when the status mismatches.
func requireStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, w.Code, "body: %s", w.Body.String())
}

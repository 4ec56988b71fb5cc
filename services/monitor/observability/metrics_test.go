// Copyright (C) 2026 CHW Monitor Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Note: promauto registers on the process-global default registry, so all
// tests share the single InitMetrics instance.

func TestInitMetrics_Singleton(t *testing.T) {
	first := InitMetrics()
	if first == nil {
		t.Fatal("InitMetrics() returned nil")
	}
	second := InitMetrics()
	if first != second {
		t.Error("InitMetrics() should return the same instance")
	}
	if DefaultMetrics != first {
		t.Error("DefaultMetrics should be set by InitMetrics()")
	}
}

func TestRecordVisit(t *testing.T) {
	m := InitMetrics()

	before := testutil.ToFloat64(m.VisitsRecordedTotal.WithLabelValues("routine", "offline"))
	m.RecordVisit("routine", true)
	m.RecordVisit("routine", true)
	m.RecordVisit("emergency", false)

	after := testutil.ToFloat64(m.VisitsRecordedTotal.WithLabelValues("routine", "offline"))
	if got := after - before; got != 2 {
		t.Errorf("routine/offline counter delta = %v, want 2", got)
	}
}

func TestMiddleware_LabelsByRouteTemplate(t *testing.T) {
	m := InitMetrics()

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/v1/chws/:chwId", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	before := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/v1/chws/:chwId", "GET", "200"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/chws/CHW001", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	after := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/v1/chws/:chwId", "GET", "200"))
	if got := after - before; got != 1 {
		t.Errorf("request counter delta = %v, want 1 (route template label)", got)
	}
}

func TestMiddleware_UnmatchedRoute(t *testing.T) {
	m := InitMetrics()

	router := gin.New()
	router.Use(m.Middleware())

	before := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("unmatched", "GET", "404"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	after := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("unmatched", "GET", "404"))
	if got := after - before; got != 1 {
		t.Errorf("unmatched counter delta = %v, want 1", got)
	}
}

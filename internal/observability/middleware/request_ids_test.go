package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithRequestAndTraceUsesHeaders(t *testing.T) {
	var gotReq, gotTrace string
	h := WithRequestAndTrace(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = RequestIDFromContext(r.Context())
		gotTrace = TraceIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-1")
	req.Header.Set("X-Trace-ID", "trace-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-1", gotReq)
	assert.Equal(t, "trace-1", gotTrace)
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))
}

func TestWithRequestAndTraceGeneratesIDs(t *testing.T) {
	var gotReq, gotTrace string
	h := WithRequestAndTrace(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = RequestIDFromContext(r.Context())
		gotTrace = TraceIDFromContext(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Len(t, gotReq, 16)
	assert.Len(t, gotTrace, 16)
	assert.NotEqual(t, gotReq, gotTrace)
}

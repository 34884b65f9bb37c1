package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, zerolog.Nop())
}

func TestFetchAll(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/tickets", r.URL.Path)
		w.Write([]byte(`{"tickets":[{"id":"GOV-001","status":"not-started","stages":[]}],"count":1}`))
	})

	tickets, err := c.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, "GOV-001", tickets[0].ID)
}

func TestFetchAll_NonOK(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	})

	_, err := c.FetchAll(context.Background())
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.Status)
}

func TestFetchTicket(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tickets/GOV-007", r.URL.Path)
		w.Write([]byte(`{"id":"GOV-007","status":"in-progress","currentStage":1,"stages":[{"id":1,"name":"Fetch","status":"completed"},{"id":2,"name":"Check","status":"in-progress"}]}`))
	})

	tk, err := c.FetchTicket(context.Background(), "GOV-007")
	require.NoError(t, err)
	assert.Equal(t, "GOV-007", tk.ID)
	assert.Len(t, tk.Stages, 2)
}

func TestProcess(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/tickets/GOV-001/process", r.URL.Path)
		w.Write([]byte(`{"status":"success","message":"Processing started"}`))
	})

	msg, err := c.Process(context.Background(), "GOV-001")
	require.NoError(t, err)
	assert.Equal(t, "Processing started", msg)
}

func TestProcess_FailureDoesNotRetry(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"error":"Ticket not found"}`, http.StatusNotFound)
	})

	_, err := c.Process(context.Background(), "GOV-404")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Status)
	assert.Equal(t, 1, calls, "no automatic retry")
}

func TestApproveReview(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tickets/GOV-001/approve-review", r.URL.Path)
		w.Write([]byte(`{"status":"success","message":"Review approved"}`))
	})

	msg, err := c.ApproveReview(context.Background(), "GOV-001")
	require.NoError(t, err)
	assert.Equal(t, "Review approved", msg)
}

func TestApproveReview_NotWaiting(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Not waiting for review"}`, http.StatusBadRequest)
	})

	_, err := c.ApproveReview(context.Background(), "GOV-001")
	assert.Error(t, err)
}

func TestPost_EmptyBodyIsNotFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	msg, err := c.Process(context.Background(), "GOV-001")
	require.NoError(t, err)
	assert.Empty(t, msg)
}

func TestContextCancellation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.FetchAll(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

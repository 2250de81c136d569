package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"

	"board-sync/domain"
)

func TestFetchColumnsDecodesGroupedSnapshot(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/api/projects/p1/columns" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"to-do": [{"_id":"t1","title":"a","status":"to-do"}],
			"done": [{"id":"t2","title":"b","status":"done"}]
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL, StaticTokenSource("secret"), nil)
	cols, err := c.FetchColumns(context.Background(), "p1")
	if err != nil {
		t.Fatalf("fetch columns: %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if len(cols["to-do"]) != 1 || cols["to-do"][0].Identity() != "t1" {
		t.Fatalf("unexpected to-do column: %#v", cols["to-do"])
	}
	if len(cols["done"]) != 1 || cols["done"][0].Identity() != "t2" {
		t.Fatalf("unexpected done column: %#v", cols["done"])
	}
}

func TestMoveTaskSendsBackendStatusAndIdempotencyKey(t *testing.T) {
	var gotKey, gotStatus string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/tasks/t1/move" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotKey = r.Header.Get("Idempotency-Key")
		var body struct {
			Status string `json:"status"`
		}
		if err := sonic.ConfigStd.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		gotStatus = body.Status
		_, _ = w.Write([]byte(`{"id":"t1","title":"a","status":"done","rev":2}`))
	}))
	defer srv.Close()

	c := New(srv.URL, StaticTokenSource("secret"), nil)
	task, err := c.MoveTask(context.Background(), "t1", domain.ToBackend(domain.StatusDone))
	if err != nil {
		t.Fatalf("move task: %v", err)
	}
	if gotStatus != "done" {
		t.Fatalf("unexpected backend status: %q", gotStatus)
	}
	if gotKey == "" {
		t.Fatalf("expected an idempotency key on the move call")
	}
	if task.Rev != 2 {
		t.Fatalf("unexpected returned task: %#v", task)
	}
}

func TestCallSurfacesBackendErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c := New(srv.URL, StaticTokenSource("secret"), nil)
	_, err := c.UpdateTask(context.Background(), "t1", domain.Task{Title: "x"})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Code != http.StatusForbidden || statusErr.Body != "nope" {
		t.Fatalf("unexpected status error: %#v", statusErr)
	}
}

func TestDeleteTaskDiscardsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("unexpected method: %s", r.Method)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL, StaticTokenSource("secret"), nil)
	if err := c.DeleteTask(context.Background(), "t1"); err != nil {
		t.Fatalf("delete task: %v", err)
	}
}

func TestMissingTokenFailsBeforeNetwork(t *testing.T) {
	c := New("http://127.0.0.1:1", StaticTokenSource(""), nil)
	if _, err := c.FetchColumns(context.Background(), "p1"); err == nil {
		t.Fatalf("expected credential error")
	}
}

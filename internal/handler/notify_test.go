package handler

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"webpush-notification/internal/model"
	"webpush-notification/internal/queue"
)

func validKeys(t *testing.T) (string, string) {
	t.Helper()
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	auth := make([]byte, 16)
	if _, err := rand.Read(auth); err != nil {
		t.Fatalf("rand.Read() error: %v", err)
	}
	return base64.RawURLEncoding.EncodeToString(priv.PublicKey().Bytes()),
		base64.RawURLEncoding.EncodeToString(auth)
}

func body(endpoint, p256dh, auth, extra string) string {
	return `{"subscription":{"endpoint":"` + endpoint + `","keys":{"p256dh":"` + p256dh +
		`","auth":"` + auth + `"}},"payload":"hello"` + extra + `}`
}

func newServer(t *testing.T, q queue.Queue, limiter *rate.Limiter) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(NewNotifyHandler(q, limiter, zerolog.Nop())))
	t.Cleanup(srv.Close)
	return srv
}

func TestNotify_Accepted(t *testing.T) {
	q := queue.NewMemoryQueue(10)
	srv := newServer(t, q, nil)
	p256dh, auth := validKeys(t)

	resp, err := http.Post(srv.URL+"/notify", "application/json",
		strings.NewReader(body("https://x.example/push/1", p256dh, auth, `,"ttl":60,"urgency":"high"`)))
	if err != nil {
		t.Fatalf("POST /notify error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}
	var out map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out["status"] != "accepted" {
		t.Errorf("status field = %q, want %q", out["status"], "accepted")
	}
	if _, err := uuid.Parse(out["task_id"]); err != nil {
		t.Errorf("task_id %q is not a UUID: %v", out["task_id"], err)
	}

	task, err := q.Dequeue(context.Background())
	if err != nil {
		t.Fatalf("Dequeue() error: %v", err)
	}
	if task.ID != out["task_id"] {
		t.Errorf("queued task ID = %q, want %q", task.ID, out["task_id"])
	}
	if task.Request.TTL == nil || *task.Request.TTL != 60 {
		t.Errorf("queued TTL = %v, want 60", task.Request.TTL)
	}
	if task.Request.Urgency != "high" {
		t.Errorf("queued urgency = %q, want %q", task.Request.Urgency, "high")
	}
}

func TestNotify_BadRequests(t *testing.T) {
	p256dh, auth := validKeys(t)
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"invalid json", "{", "Invalid JSON body"},
		{"missing endpoint", body("", p256dh, auth, ""), "Endpoint is required"},
		{"relative endpoint", body("/push/1", p256dh, auth, ""), "must be an absolute URL"},
		{"missing auth", body("https://x.example/1", p256dh, "", ""), "Auth is required"},
		{"missing p256dh", body("https://x.example/1", "", auth, ""), "P256dh is required"},
		{"malformed p256dh", body("https://x.example/1", "AAAA", auth, ""), "p256dh"},
		{"unknown urgency", body("https://x.example/1", p256dh, auth, `,"urgency":"asap"`), "invalid urgency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := queue.NewMemoryQueue(10)
			srv := newServer(t, q, nil)

			resp, err := http.Post(srv.URL+"/notify", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("POST /notify error: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
			}
			got, err := io.ReadAll(resp.Body)
			if err != nil {
				t.Fatalf("read body: %v", err)
			}
			if !strings.Contains(string(got), tt.message) {
				t.Errorf("body = %q, want it to contain %q", got, tt.message)
			}
			if q.Len() != 0 {
				t.Errorf("queue length = %d, want 0", q.Len())
			}
		})
	}
}

func TestNotify_QueueFull(t *testing.T) {
	q := queue.NewMemoryQueue(1)
	srv := newServer(t, q, nil)
	p256dh, auth := validKeys(t)

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		resp, err := http.Post(srv.URL+"/notify", "application/json",
			strings.NewReader(body("https://x.example/push/1", p256dh, auth, "")))
		if err != nil {
			t.Fatalf("POST /notify error: %v", err)
		}
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}

	if codes[0] != http.StatusAccepted || codes[1] != http.StatusServiceUnavailable {
		t.Errorf("status codes = %v, want [202 503]", codes)
	}
}

type failingQueue struct{}

func (failingQueue) Enqueue(context.Context, *model.Task) error {
	return errors.New("connection refused")
}

func (failingQueue) Dequeue(ctx context.Context) (*model.Task, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestNotify_QueueError(t *testing.T) {
	srv := newServer(t, failingQueue{}, nil)
	p256dh, auth := validKeys(t)

	resp, err := http.Post(srv.URL+"/notify", "application/json",
		strings.NewReader(body("https://x.example/push/1", p256dh, auth, "")))
	if err != nil {
		t.Fatalf("POST /notify error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusInternalServerError)
	}
}

func TestNotify_RateLimited(t *testing.T) {
	q := queue.NewMemoryQueue(10)
	srv := newServer(t, q, rate.NewLimiter(rate.Every(1e12), 1))
	p256dh, auth := validKeys(t)

	var last int
	for i := 0; i < 2; i++ {
		resp, err := http.Post(srv.URL+"/notify", "application/json",
			strings.NewReader(body("https://x.example/push/1", p256dh, auth, "")))
		if err != nil {
			t.Fatalf("POST /notify error: %v", err)
		}
		resp.Body.Close()
		last = resp.StatusCode
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("second status = %d, want %d", last, http.StatusTooManyRequests)
	}
}

func TestRouter_MethodAndHealth(t *testing.T) {
	srv := newServer(t, queue.NewMemoryQueue(1), nil)

	resp, err := http.Get(srv.URL + "/notify")
	if err != nil {
		t.Fatalf("GET /notify error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /notify status = %d, want %d", resp.StatusCode, http.StatusMethodNotAllowed)
	}

	resp, err = http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /health status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestNotify_BodyTooLarge(t *testing.T) {
	q := queue.NewMemoryQueue(10)
	srv := newServer(t, q, nil)
	p256dh, auth := validKeys(t)

	padding := `,"pad":"` + strings.Repeat("x", maxBodyBytes) + `"`
	resp, err := http.Post(srv.URL+"/notify", "application/json",
		strings.NewReader(body("https://x.example/push/1", p256dh, auth, padding)))
	if err != nil {
		t.Fatalf("POST /notify error: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusRequestEntityTooLarge)
	}
	if q.Len() != 0 {
		t.Errorf("queue length = %d, want 0", q.Len())
	}
}

package csvjob

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"tiny-url-service/model"
	"tiny-url-service/qr"
	"tiny-url-service/queue"
	"tiny-url-service/shortener"
	"tiny-url-service/store"
	"tiny-url-service/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

type stubProber struct{ reachable bool }

func (p stubProber) Probe(ctx context.Context, url string) bool { return p.reachable }

type testEnv struct {
	pipeline *Pipeline
	store    *store.Store
	svc      *shortener.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	st := store.New(client)
	q := queue.New(client, 1)
	svc := shortener.New(st, stubProber{reachable: true}, 100)
	qrPipeline := qr.NewPipeline(q, st, "qr_tasks", "http://localhost:8080")
	pipeline := NewPipeline(q, st, svc, qrPipeline, "csv_tasks", "http://localhost:8080", 10)

	return &testEnv{pipeline: pipeline, store: st, svc: svc}
}

func waitForProgress(t *testing.T, pipeline *Pipeline, jobID string, want int) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		percent, err := pipeline.Progress(context.Background(), jobID)
		if err != nil {
			t.Fatalf("Progress() error = %v", err)
		}
		if percent >= want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("progress stuck at %d%%, want %d%%", percent, want)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSubmit_EmptyUpload(t *testing.T) {
	env := newTestEnv(t)

	if _, _, err := env.pipeline.Submit(context.Background(), "", nil, "203.0.113.7", false, nil); !errors.Is(err, utils.ErrEmptyCSV) {
		t.Errorf("Submit() error = %v, want ErrEmptyCSV", err)
	}
}

func TestSubmit_GeneratesJobID(t *testing.T) {
	env := newTestEnv(t)

	jobID, total, err := env.pipeline.Submit(context.Background(), "", []string{"http://example.com/"}, "203.0.113.7", false, nil)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if jobID == "" {
		t.Error("Submit() did not generate a job ID")
	}
	if total != 1 {
		t.Errorf("total = %d, want 1", total)
	}
}

func TestJob_MixedValidAndInvalid(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	urls := []string{
		"http://one.example.com/",
		"ftp://bad.example.com/",
		"http://two.example.com/",
		"not a url",
		"https://three.example.com/",
	}

	jobID, total, err := env.pipeline.Submit(ctx, "job-mixed", urls, "203.0.113.7", false, nil)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if total != 5 {
		t.Fatalf("total = %d, want 5", total)
	}

	go env.pipeline.Run(ctx)
	waitForProgress(t, env.pipeline, jobID, 100)

	rows, err := env.store.ListJobRows(ctx, jobID)
	if err != nil {
		t.Fatalf("ListJobRows() error = %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("got %d rows, want 5", len(rows))
	}

	invalid := 0
	for _, row := range rows {
		if row.Comment != "" {
			invalid++
			if row.Hash != "" {
				t.Errorf("invalid row has a hash: %+v", row)
			}
		} else if row.Hash == "" {
			t.Errorf("valid row missing hash: %+v", row)
		}
	}
	if invalid != 2 {
		t.Errorf("got %d invalid rows, want 2", invalid)
	}
}

func TestJob_QRRequested(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jobID, _, err := env.pipeline.Submit(ctx, "job-qr", []string{"http://example.com/"}, "203.0.113.7", true, nil)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	go env.pipeline.Run(ctx)
	waitForProgress(t, env.pipeline, jobID, 100)

	rows, err := env.store.ListJobRows(ctx, jobID)
	if err != nil {
		t.Fatalf("ListJobRows() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if !strings.HasPrefix(rows[0].QRLink, "http://localhost:8080/qr/") {
		t.Errorf("QRLink = %q, want a /qr/ link", rows[0].QRLink)
	}
}

func TestProgress_UnknownJob(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.pipeline.Progress(context.Background(), "nope"); !errors.Is(err, utils.ErrNotFound) {
		t.Errorf("Progress() error = %v, want ErrNotFound", err)
	}
}

func TestProgress_PushListeners(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := env.pipeline.Registry()
	first := registry.Register("job-push")
	second := registry.Register("job-push")
	defer registry.Unregister("job-push", second)

	jobID, _, err := env.pipeline.Submit(ctx, "job-push", []string{"http://example.com/", "http://other.example.com/"}, "203.0.113.7", false, nil)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	go env.pipeline.Run(ctx)

	// Both listeners receive the completion event
	for name, ch := range map[string]chan Event{"first": first, "second": second} {
		done := false
		deadline := time.After(5 * time.Second)
		for !done {
			select {
			case ev := <-ch:
				if ev.Done {
					if ev.Percent != 100 {
						t.Errorf("%s listener: completion percent = %d, want 100", name, ev.Percent)
					}
					done = true
				}
			case <-deadline:
				t.Fatalf("%s listener never saw completion for job %s", name, jobID)
			}
		}
	}

	registry.Unregister("job-push", first)
	if _, ok := <-first; ok {
		t.Error("unregistered channel not closed")
	}
}

func TestWriteCSV(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	urls := []string{"http://example.com/", "bogus"}
	jobID, _, err := env.pipeline.Submit(ctx, "job-csv", urls, "203.0.113.7", false, nil)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	go env.pipeline.Run(ctx)
	waitForProgress(t, env.pipeline, jobID, 100)

	var buf bytes.Buffer
	if err := env.pipeline.WriteCSV(ctx, jobID, &buf); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading generated CSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d CSV records, want 2", len(records))
	}
	for _, record := range records {
		if len(record) != 4 {
			t.Fatalf("record has %d columns, want 4: %v", len(record), record)
		}
		switch record[0] {
		case "http://example.com/":
			if !strings.HasPrefix(record[1], "http://localhost:8080/tiny-") {
				t.Errorf("short link = %q, want a /tiny- link", record[1])
			}
			if record[2] != "" {
				t.Errorf("valid row has comment %q", record[2])
			}
		case "bogus":
			if record[1] != "" {
				t.Errorf("invalid row has short link %q", record[1])
			}
			if record[2] == "" {
				t.Error("invalid row missing comment")
			}
		default:
			t.Errorf("unexpected original URL %q", record[0])
		}
	}
}

func TestWriteCSV_UnknownJob(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	if err := env.pipeline.WriteCSV(context.Background(), "nope", &buf); !errors.Is(err, utils.ErrNotFound) {
		t.Errorf("WriteCSV() error = %v, want ErrNotFound", err)
	}
}

func TestJob_DuplicateDeliveryCapsAt100(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	jobID := "job-dup"
	if err := env.store.SetJobTotal(ctx, jobID, 2); err != nil {
		t.Fatalf("SetJobTotal() error = %v", err)
	}
	// Simulate at-least-once redelivery: three rows for a two-line job
	for i := 0; i < 3; i++ {
		if err := env.store.AppendJobRow(ctx, &model.CSVJobRow{JobID: jobID, Hash: "aaaa1111", OriginalURL: "http://example.com/"}); err != nil {
			t.Fatalf("AppendJobRow() error = %v", err)
		}
	}

	percent, err := env.pipeline.Progress(ctx, jobID)
	if err != nil {
		t.Fatalf("Progress() error = %v", err)
	}
	if percent != 100 {
		t.Errorf("Progress() = %d, want 100", percent)
	}
}

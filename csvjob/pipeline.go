package csvjob

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"tiny-url-service/model"
	"tiny-url-service/qr"
	"tiny-url-service/queue"
	"tiny-url-service/shortener"
	"tiny-url-service/store"
	"tiny-url-service/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const invalidURLComment = "invalid URL"

// Pipeline fans uploaded CSV lines out to queue workers, tracks per-job
// completion, and reconstructs result CSVs. Each line becomes one independent
// task; completion counting is a plain row count, so processing order and
// duplicate deliveries cannot corrupt progress.
type Pipeline struct {
	queue        *queue.Queue
	store        *store.Store
	shortener    *shortener.Service
	qrPipeline   *qr.Pipeline
	registry     *Registry
	queueName    string
	baseURL      string
	pollInterval time.Duration
}

func NewPipeline(
	q *queue.Queue,
	st *store.Store,
	svc *shortener.Service,
	qrPipeline *qr.Pipeline,
	queueName, baseURL string,
	progressPollMs int,
) *Pipeline {
	if progressPollMs <= 0 {
		progressPollMs = 50
	}
	return &Pipeline{
		queue:        q,
		store:        st,
		shortener:    svc,
		qrPipeline:   qrPipeline,
		registry:     NewRegistry(),
		queueName:    queueName,
		baseURL:      baseURL,
		pollInterval: time.Duration(progressPollMs) * time.Millisecond,
	}
}

// Registry exposes the progress listener registry for push delivery.
func (p *Pipeline) Registry() *Registry {
	return p.registry
}

// Submit records the job's total line count, publishes one task per URL, and
// returns immediately. An empty jobID gets a server-generated UUID. Publishing
// is independent per line; a failed publish aborts the submission and is
// surfaced to the caller.
func (p *Pipeline) Submit(ctx context.Context, jobID string, urls []string, remoteAddr string, qrRequested bool, format *model.Format) (string, int, error) {
	if len(urls) == 0 {
		return "", 0, utils.ErrEmptyCSV
	}
	if jobID == "" {
		jobID = uuid.NewString()
	}

	// Total goes in before any task so progress is never computed against zero
	if err := p.store.SetJobTotal(ctx, jobID, len(urls)); err != nil {
		return "", 0, fmt.Errorf("record job total: %w", err)
	}

	for _, rawURL := range urls {
		task := model.CSVTask{
			JobID:       jobID,
			URL:         rawURL,
			RemoteAddr:  remoteAddr,
			QRRequested: qrRequested,
			Format:      format,
		}
		if err := p.queue.Publish(ctx, p.queueName, task); err != nil {
			return "", 0, fmt.Errorf("publish CSV task: %w", err)
		}
	}

	go p.watch(context.WithoutCancel(ctx), jobID, int64(len(urls)))

	log.Info().
		Str("job_id", jobID).
		Int("lines", len(urls)).
		Bool("qr", qrRequested).
		Msg("CSV job submitted")

	return jobID, len(urls), nil
}

// Run consumes CSV row tasks until the context is canceled.
func (p *Pipeline) Run(ctx context.Context) {
	p.queue.Consume(ctx, p.queueName, p.handle)
}

// handle processes one CSV line: invalid URLs get an error row, valid ones go
// through the lifecycle controller and optionally enqueue a QR render. The QR
// link is recorded regardless of how the render itself fares later.
func (p *Pipeline) handle(ctx context.Context, payload []byte) error {
	var task model.CSVTask
	if err := json.Unmarshal(payload, &task); err != nil {
		return fmt.Errorf("decode CSV task: %w", err)
	}

	row := model.CSVJobRow{
		JobID:       task.JobID,
		OriginalURL: task.URL,
	}

	su, err := p.shortener.Create(ctx, task.URL, shortener.Metadata{IP: task.RemoteAddr})
	switch {
	case errors.Is(err, utils.ErrEmptyURL),
		errors.Is(err, utils.ErrInvalidURL),
		errors.Is(err, utils.ErrInvalidScheme),
		errors.Is(err, utils.ErrEmptyHost):
		row.Comment = invalidURLComment
	case errors.Is(err, utils.ErrNotReachable):
		row.Comment = err.Error()
	case err != nil:
		// Store failure: drop the message, the row count stays short
		return fmt.Errorf("create short URL for job %s: %w", task.JobID, err)
	default:
		row.Hash = su.Hash
		if task.QRRequested {
			format := model.DefaultFormat()
			if task.Format != nil {
				format = *task.Format
			}
			row.QRLink = fmt.Sprintf("%s/qr/%s", p.baseURL, su.Hash)
			if err := p.qrPipeline.Enqueue(ctx, su.Hash, format); err != nil {
				log.Error().Err(err).Str("hash", su.Hash).Msg("Failed to enqueue QR task for CSV row")
			}
		}
	}

	if err := p.store.AppendJobRow(ctx, &row); err != nil {
		return fmt.Errorf("append row for job %s: %w", task.JobID, err)
	}
	return nil
}

// Progress returns the completed percentage for a job, floored, capped at 100
// in case duplicate deliveries produced extra rows.
func (p *Pipeline) Progress(ctx context.Context, jobID string) (int, error) {
	total, err := p.store.GetJobTotal(ctx, jobID)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, utils.ErrNotFound
	}

	count, err := p.store.CountJobRows(ctx, jobID)
	if err != nil {
		return 0, err
	}

	percent := int(count * 100 / total)
	if percent > 100 {
		percent = 100
	}
	return percent, nil
}

// watch polls the row count and pushes progress to registered listeners until
// the job completes. Listeners are optional; the poll-based Progress method
// stays authoritative either way.
func (p *Pipeline) watch(ctx context.Context, jobID string, total int64) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		count, err := p.store.CountJobRows(ctx, jobID)
		if err != nil {
			log.Error().Err(err).Str("job_id", jobID).Msg("Progress watch failed")
			continue
		}

		percent := int(count * 100 / total)
		if percent > 100 {
			percent = 100
		}

		if count >= total {
			p.registry.Notify(jobID, Event{Percent: 100, Done: true})
			log.Info().Str("job_id", jobID).Msg("CSV job completed")
			return
		}
		p.registry.Notify(jobID, Event{Percent: percent})
	}
}

// WriteCSV streams the job's result rows as CSV in storage order. Columns:
// original URL, short link, comment, QR link. Row order is worker completion
// order, not submission order.
func (p *Pipeline) WriteCSV(ctx context.Context, jobID string, w io.Writer) error {
	total, err := p.store.GetJobTotal(ctx, jobID)
	if err != nil {
		return err
	}
	if total == 0 {
		return utils.ErrNotFound
	}

	rows, err := p.store.ListJobRows(ctx, jobID)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	for _, row := range rows {
		shortLink := ""
		if row.Hash != "" {
			shortLink = fmt.Sprintf("%s/tiny-%s", p.baseURL, row.Hash)
		}
		if err := writer.Write([]string{row.OriginalURL, shortLink, row.Comment, row.QRLink}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

package qr

import (
	"context"
	"encoding/json"
	"fmt"

	"tiny-url-service/model"
	"tiny-url-service/queue"
	"tiny-url-service/store"

	"github.com/rs/zerolog/log"
)

// Pipeline decouples QR generation from the request path: Enqueue publishes a
// render task, Run consumes tasks and persists the rendered images.
type Pipeline struct {
	queue     *queue.Queue
	store     *store.Store
	queueName string
	baseURL   string
}

func NewPipeline(q *queue.Queue, st *store.Store, queueName, baseURL string) *Pipeline {
	return &Pipeline{
		queue:     q,
		store:     st,
		queueName: queueName,
		baseURL:   baseURL,
	}
}

// Enqueue publishes a render task for the given hash. It never blocks on
// image generation.
func (p *Pipeline) Enqueue(ctx context.Context, hash string, format model.Format) error {
	return p.queue.Publish(ctx, p.queueName, model.QRTask{Hash: hash, Format: format})
}

// Run consumes render tasks until the context is canceled. Invalid formats
// and render failures drop the task after logging: malformed input would
// never succeed on retry.
func (p *Pipeline) Run(ctx context.Context) {
	p.queue.Consume(ctx, p.queueName, p.handle)
}

func (p *Pipeline) handle(ctx context.Context, payload []byte) error {
	var task model.QRTask
	if err := json.Unmarshal(payload, &task); err != nil {
		return fmt.Errorf("decode QR task: %w", err)
	}

	content := fmt.Sprintf("%s/tiny-%s", p.baseURL, task.Hash)
	image, err := Render(content, task.Format)
	if err != nil {
		return fmt.Errorf("render QR for %s: %w", task.Hash, err)
	}

	if err := p.store.SaveQRCode(ctx, &model.QRCode{
		Hash:   task.Hash,
		Format: task.Format,
		Image:  image,
	}); err != nil {
		return fmt.Errorf("save QR for %s: %w", task.Hash, err)
	}

	log.Info().
		Str("hash", task.Hash).
		Int("bytes", len(image)).
		Msg("QR code rendered and stored")
	return nil
}

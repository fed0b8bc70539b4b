package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"tiny-url-service/model"

	"github.com/go-redis/redis/v8"
)

// Redis key layout. Short URLs and QR codes are plain JSON values; clicks and
// job rows are append-only lists.
const (
	urlKeyPrefix    = "url:"
	qrKeyPrefix     = "qr:"
	clicksKeyPrefix = "clicks:"
	jobRowsSuffix   = ":rows"
	jobTotalSuffix  = ":total"
	jobKeyPrefix    = "job:"
)

// Store persists short URLs, QR codes, clicks and CSV job rows in Redis.
// It is the single source of truth shared by the request path and the
// background workers.
type Store struct {
	redis *redis.Client
}

func New(redisClient *redis.Client) *Store {
	return &Store{redis: redisClient}
}

// SaveShortURL upserts a short URL record under its hash.
func (s *Store) SaveShortURL(ctx context.Context, su *model.ShortURL) error {
	data, err := json.Marshal(su)
	if err != nil {
		return fmt.Errorf("marshal short URL: %w", err)
	}
	return s.redis.Set(ctx, urlKeyPrefix+su.Hash, data, 0).Err()
}

// GetShortURL fetches a short URL record by hash. Returns (nil, nil) when the
// hash is unknown.
func (s *Store) GetShortURL(ctx context.Context, hash string) (*model.ShortURL, error) {
	data, err := s.redis.Get(ctx, urlKeyPrefix+hash).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var su model.ShortURL
	if err := json.Unmarshal(data, &su); err != nil {
		return nil, fmt.Errorf("unmarshal short URL: %w", err)
	}
	return &su, nil
}

// SaveQRCode upserts a rendered QR code under its hash.
func (s *Store) SaveQRCode(ctx context.Context, qr *model.QRCode) error {
	data, err := json.Marshal(qr)
	if err != nil {
		return fmt.Errorf("marshal QR code: %w", err)
	}
	return s.redis.Set(ctx, qrKeyPrefix+qr.Hash, data, 0).Err()
}

// GetQRCode fetches a stored QR code by hash. Returns (nil, nil) when no
// image has been generated for the hash.
func (s *Store) GetQRCode(ctx context.Context, hash string) (*model.QRCode, error) {
	data, err := s.redis.Get(ctx, qrKeyPrefix+hash).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var qr model.QRCode
	if err := json.Unmarshal(data, &qr); err != nil {
		return nil, fmt.Errorf("unmarshal QR code: %w", err)
	}
	return &qr, nil
}

// SaveClick appends a click record to the hash's click log.
func (s *Store) SaveClick(ctx context.Context, click *model.Click) error {
	data, err := json.Marshal(click)
	if err != nil {
		return fmt.Errorf("marshal click: %w", err)
	}
	return s.redis.RPush(ctx, clicksKeyPrefix+click.Hash, data).Err()
}

// ListClicks returns all recorded clicks for a hash, oldest first.
func (s *Store) ListClicks(ctx context.Context, hash string) ([]model.Click, error) {
	items, err := s.redis.LRange(ctx, clicksKeyPrefix+hash, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	clicks := make([]model.Click, 0, len(items))
	for _, item := range items {
		var click model.Click
		if err := json.Unmarshal([]byte(item), &click); err != nil {
			return nil, fmt.Errorf("unmarshal click: %w", err)
		}
		clicks = append(clicks, click)
	}
	return clicks, nil
}

// AppendJobRow records one processed CSV line for a job. Rows arrive in
// worker completion order, not submission order, and duplicates from
// redelivered messages are stored as-is.
func (s *Store) AppendJobRow(ctx context.Context, row *model.CSVJobRow) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshal job row: %w", err)
	}
	return s.redis.RPush(ctx, jobKeyPrefix+row.JobID+jobRowsSuffix, data).Err()
}

// CountJobRows returns how many rows have been recorded for a job.
func (s *Store) CountJobRows(ctx context.Context, jobID string) (int64, error) {
	return s.redis.LLen(ctx, jobKeyPrefix+jobID+jobRowsSuffix).Result()
}

// ListJobRows returns the recorded rows for a job in storage order.
func (s *Store) ListJobRows(ctx context.Context, jobID string) ([]model.CSVJobRow, error) {
	items, err := s.redis.LRange(ctx, jobKeyPrefix+jobID+jobRowsSuffix, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	rows := make([]model.CSVJobRow, 0, len(items))
	for _, item := range items {
		var row model.CSVJobRow
		if err := json.Unmarshal([]byte(item), &row); err != nil {
			return nil, fmt.Errorf("unmarshal job row: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// SetJobTotal records the number of lines submitted for a job. Written once
// by the submitter before any task is enqueued.
func (s *Store) SetJobTotal(ctx context.Context, jobID string, total int) error {
	return s.redis.Set(ctx, jobKeyPrefix+jobID+jobTotalSuffix, total, 0).Err()
}

// GetJobTotal returns the submitted line count for a job, or (0, nil) when
// the job is unknown.
func (s *Store) GetJobTotal(ctx context.Context, jobID string) (int64, error) {
	total, err := s.redis.Get(ctx, jobKeyPrefix+jobID+jobTotalSuffix).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return total, nil
}

// Ping checks Redis availability.
func (s *Store) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

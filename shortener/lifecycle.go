package shortener

import (
	"context"
	"sync"
	"time"

	"tiny-url-service/model"
	"tiny-url-service/store"
	"tiny-url-service/utils"

	"github.com/rs/zerolog/log"
)

// graceDuration pads the resolution context past the probe timeout so the
// store writes after a slow probe still go through.
const graceDuration = 5 * time.Second

// Metadata carries the optional request properties attached to a new short URL.
type Metadata struct {
	IP      string
	Sponsor string
	Owner   string
}

// Service owns the short URL lifecycle: synchronous creation and the
// asynchronous reachability resolution that flips a record from unvalidated
// to its terminal validated state.
type Service struct {
	store        *store.Store
	prober       Prober
	probeTimeout time.Duration

	wg sync.WaitGroup
}

func New(st *store.Store, prober Prober, probeTimeoutMs int) *Service {
	return &Service{
		store:        st,
		prober:       prober,
		probeTimeout: time.Duration(probeTimeoutMs) * time.Millisecond,
	}
}

// Create validates and hashes a URL, persists an unvalidated record, and
// launches the reachability probe in the background. The caller never blocks
// on the network check.
//
// Re-creating an existing URL is idempotent: the stored record is returned
// untouched and no second probe is launched, unless the record has already
// resolved to unreachable, in which case creation fails.
func (s *Service) Create(ctx context.Context, rawURL string, meta Metadata) (*model.ShortURL, error) {
	if err := utils.ValidateURL(rawURL); err != nil {
		return nil, err
	}

	hash := utils.HashURL(rawURL)

	existing, err := s.store.GetShortURL(ctx, hash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Validated && !existing.Reachable {
			return nil, utils.ErrNotReachable
		}
		return existing, nil
	}

	su := &model.ShortURL{
		Hash:       hash,
		Target:     rawURL,
		StatusCode: model.DefaultRedirectCode,
		CreatedAt:  time.Now().UTC(),
		Safe:       true,
		IP:         meta.IP,
		Sponsor:    meta.Sponsor,
		Owner:      meta.Owner,
	}
	if err := s.store.SaveShortURL(ctx, su); err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go s.resolve(hash, rawURL)

	log.Info().
		Str("hash", hash).
		Str("target", rawURL).
		Msg("Short URL created, reachability probe launched")

	return su, nil
}

// resolve runs the reachability probe and records its outcome. Every probe
// completes the record: timeouts and network failures count as unreachable,
// never as still-pending. Detached from the request context so the caller's
// response does not cut the probe short.
func (s *Service) resolve(hash, rawURL string) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.probeTimeout+graceDuration)
	defer cancel()

	reachable := s.prober.Probe(ctx, rawURL)

	// Re-fetch: the record may have been written again by a racing duplicate
	// create. Last write wins; only this resolution step sets these fields.
	su, err := s.store.GetShortURL(ctx, hash)
	if err != nil {
		log.Error().Err(err).Str("hash", hash).Msg("Failed to fetch record for resolution")
		return
	}
	if su == nil {
		log.Warn().Str("hash", hash).Msg("Record vanished before resolution")
		return
	}

	su.Validated = true
	su.Reachable = reachable
	if err := s.store.SaveShortURL(ctx, su); err != nil {
		log.Error().Err(err).Str("hash", hash).Msg("Failed to persist resolution")
		return
	}

	log.Info().
		Str("hash", hash).
		Bool("reachable", reachable).
		Msg("Reachability resolved")
}

// Resolve returns the record for a redirect, distinguishing unknown hashes,
// records still awaiting validation, and confirmed-dead targets.
func (s *Service) Resolve(ctx context.Context, hash string) (*model.ShortURL, error) {
	su, err := s.store.GetShortURL(ctx, hash)
	if err != nil {
		return nil, err
	}
	if su == nil {
		return nil, utils.ErrNotFound
	}
	if !su.Validated {
		return nil, utils.ErrNotValidatedYet
	}
	if !su.Reachable {
		return nil, utils.ErrNotReachable
	}
	return su, nil
}

// Info returns the click log for a known hash.
func (s *Service) Info(ctx context.Context, hash string) ([]model.Click, error) {
	su, err := s.store.GetShortURL(ctx, hash)
	if err != nil {
		return nil, err
	}
	if su == nil {
		return nil, utils.ErrNotFound
	}
	return s.store.ListClicks(ctx, hash)
}

// LogClick appends a click record off the redirect path.
func (s *Service) LogClick(click *model.Click) {
	ctx, cancel := context.WithTimeout(context.Background(), graceDuration)
	defer cancel()

	if err := s.store.SaveClick(ctx, click); err != nil {
		log.Error().Err(err).Str("hash", click.Hash).Msg("Failed to log click")
	}
}

// Wait blocks until all in-flight reachability resolutions have completed.
// Used during shutdown and by tests that need a deterministic probe outcome.
func (s *Service) Wait() {
	s.wg.Wait()
}

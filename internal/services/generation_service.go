package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/rs/zerolog"

	"photo-studio-backend/internal/models"
	"photo-studio-backend/internal/storage"
	"photo-studio-backend/internal/store"
	"photo-studio-backend/internal/supabase"
	"photo-studio-backend/internal/workflow"
)

// Event names published to generation_events.
const (
	EventUploadStarted       = "upload_started"
	EventGenerationSubmitted = "generation_submitted"
	EventGenerationPolling   = "generation_polling"
	EventGenerationCompleted = "generation_completed"
	EventGenerationFailed    = "generation_failed"
)

const (
	defaultHistoryLimit   = 50
	historyWriteTimeout   = 10 * time.Second
	cleanupTimeout        = 30 * time.Second
	minSweepInterval      = time.Minute
	internalFailureReason = "generation failed: internal error"
)

var ErrHistoryUnavailable = errors.New("job history is not configured")

// Runner runs one generation. *workflow.Engine implements it.
type Runner interface {
	Run(ctx context.Context, req models.JobRequest, obs workflow.Observer) (string, error)
}

// HistoryRecorder persists finished jobs. *supabase.DatabaseClient implements
// it.
type HistoryRecorder interface {
	RecordJob(ctx context.Context, job models.JobRecord) error
	ListJobs(ctx context.Context, userID string, limit int) ([]models.JobRecord, error)
}

// EventPublisher pushes session events to subscribed clients.
// *supabase.RealtimeClient implements it.
type EventPublisher interface {
	PublishUserEvent(userID string, event string, payload map[string]interface{}) error
}

type Options struct {
	MaxConcurrentJobs int
	// SessionTTL evicts sessions unused for this long. Zero keeps them until
	// shutdown.
	SessionTTL time.Duration
	History    HistoryRecorder
	Events     EventPublisher
	Logger     zerolog.Logger
}

// GenerationService owns one job slot per user and runs their generations on
// a bounded worker pool.
type GenerationService struct {
	ctx      context.Context
	runner   Runner
	uploader storage.Uploader
	pool     *workerpool.WorkerPool
	history  HistoryRecorder
	events   EventPublisher
	logger   zerolog.Logger

	sessionTTL time.Duration
	stop       chan struct{}
	stopOnce   sync.Once

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	store    *store.Store
	lastUsed time.Time
}

// NewGenerationService ties every job to ctx. Cancelling it interrupts jobs in
// flight, which then fail.
func NewGenerationService(ctx context.Context, runner Runner, uploader storage.Uploader, opts Options) *GenerationService {
	workers := opts.MaxConcurrentJobs
	if workers <= 0 {
		workers = 1
	}
	s := &GenerationService{
		ctx:        ctx,
		runner:     runner,
		uploader:   uploader,
		pool:       workerpool.New(workers),
		history:    opts.History,
		events:     opts.Events,
		logger:     opts.Logger,
		sessionTTL: opts.SessionTTL,
		stop:       make(chan struct{}),
		sessions:   make(map[string]*session),
	}
	if s.sessionTTL > 0 {
		go s.sweepIdle()
	}
	return s
}

// Close stops the idle-session sweeper and waits for queued and running jobs
// to finish.
func (s *GenerationService) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.pool.StopWait()
}

func (s *GenerationService) HasHistory() bool {
	return s.history != nil
}

// Session returns the user's store, creating it on first use.
func (s *GenerationService) Session(userID string) *store.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		sess = &session{store: store.New()}
		s.sessions[userID] = sess
	}
	sess.lastUsed = time.Now()
	return sess.store
}

func (s *GenerationService) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// EvictIdle drops sessions last used before now minus the session TTL. A
// session with a job in flight is kept. Files of evicted sessions are removed
// the way ClearAll removes them.
func (s *GenerationService) EvictIdle(now time.Time) int {
	if s.sessionTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-s.sessionTTL)

	evicted := map[string]store.Dropped{}
	s.mu.Lock()
	for userID, sess := range s.sessions {
		if !sess.lastUsed.Before(cutoff) {
			continue
		}
		dropped, err := sess.store.ClearAll()
		if err != nil {
			continue
		}
		delete(s.sessions, userID)
		evicted[userID] = dropped
	}
	s.mu.Unlock()

	if len(evicted) == 0 {
		return 0
	}
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	for userID, dropped := range evicted {
		s.cleanup(ctx, userID, dropped)
	}
	s.logger.Info().Int("sessions", len(evicted)).Msg("evicted idle sessions")
	return len(evicted)
}

func (s *GenerationService) sweepIdle() {
	interval := s.sessionTTL / 4
	if interval < minSweepInterval {
		interval = minSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-s.ctx.Done():
			return
		case now := <-ticker.C:
			s.EvictIdle(now)
		}
	}
}

func (s *GenerationService) Snapshot(userID string) store.State {
	return s.Session(userID).Snapshot()
}

// SelectImages replaces (or, with appendImages, extends) the user's selection.
// Local files of images that are no longer referenced are removed.
func (s *GenerationService) SelectImages(userID string, mode models.Mode, uris []string, appendImages bool) (store.State, error) {
	if len(uris) == 0 {
		return store.State{}, store.ErrNoImages
	}
	if mode == models.ModeSingle && (len(uris) > 1 || appendImages) {
		return store.State{}, workflow.ErrModeImages
	}

	st := s.Session(userID)
	previous := st.Snapshot()

	refs := make([]models.ImageRef, 0, len(uris))
	for _, uri := range uris {
		refs = append(refs, models.NewImageRef(uri))
	}

	var err error
	switch {
	case appendImages:
		err = st.AddImages(refs)
	case mode == models.ModeSingle:
		if err = st.ResetUIState(); err == nil {
			err = st.SelectImage(refs[0])
		}
	default:
		if err = st.ResetUIState(); err == nil {
			err = st.SelectImages(refs)
		}
	}
	if err != nil {
		return store.State{}, err
	}

	current := st.Snapshot()
	s.removeUnreferenced(previous, current)
	return current, nil
}

// RemoveImage drops one image from the selection and deletes its local file.
func (s *GenerationService) RemoveImage(userID string, index int) (store.State, error) {
	st := s.Session(userID)
	removed, err := st.RemoveImage(index)
	if err != nil {
		return store.State{}, err
	}
	current := st.Snapshot()
	if !referenced(current, removed.LocalURI) {
		s.removeLocal(removed.LocalURI)
	}
	return current, nil
}

// Generate validates the request against the current selection, claims the
// job slot and queues the job. With wait the call returns once the job has
// reached a terminal phase or ctx is done. The job itself runs on the
// service context and keeps going when ctx is cancelled.
func (s *GenerationService) Generate(ctx context.Context, userID, authToken string, req models.GenerateRequest, wait bool) (store.State, error) {
	st := s.Session(userID)
	if err := ctx.Err(); err != nil {
		return st.Snapshot(), err
	}
	snap := st.Snapshot()

	jobReq := models.JobRequest{
		UserID:    userID,
		Mode:      snap.Mode,
		Images:    snap.LocalURIs(),
		Prompt:    req.Prompt,
		Endpoints: req.Endpoints(),
		AuthToken: authToken,
		Extra:     buildExtra(req),
	}
	if err := workflow.Validate(jobReq); err != nil {
		st.ReportError(err.Error())
		return st.Snapshot(), err
	}

	started, err := st.StartGeneration(req.Prompt)
	if err != nil {
		return st.Snapshot(), err
	}
	jobReq.Mode = started.Mode
	jobReq.Images = started.LocalURIs()

	log := s.logger.With().Str("user_id", userID).Str("mode", string(jobReq.Mode)).Logger()
	log.Info().Int("images", len(jobReq.Images)).Msg("generation queued")
	s.publish(userID, EventUploadStarted, supabase.UploadStartedPayload(len(jobReq.Images)))

	done := make(chan struct{})
	s.pool.Submit(func() {
		defer close(done)
		s.run(userID, st, jobReq)
	})
	if wait {
		select {
		case <-done:
		case <-ctx.Done():
			log.Info().Msg("stopped waiting for generation")
			return st.Snapshot(), ctx.Err()
		}
	}
	return st.Snapshot(), nil
}

func (s *GenerationService) run(userID string, st *store.Store, jobReq models.JobRequest) {
	log := s.logger.With().Str("user_id", userID).Logger()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("generation panicked")
			if err := st.FailGeneration(internalFailureReason); err == nil {
				s.finish(userID, st)
			}
		}
	}()

	obs := &sessionObserver{Store: st, service: s, userID: userID}
	resultURL, err := s.runner.Run(s.ctx, jobReq, obs)
	if err != nil {
		log.Warn().Err(err).Str("kind", string(workflow.KindOf(err))).Msg("generation failed")
		if ferr := st.FailGeneration(err.Error()); ferr != nil {
			log.Error().Err(ferr).Msg("failed to record generation failure")
			return
		}
	} else {
		if cerr := st.CompleteGeneration(resultURL); cerr != nil {
			log.Error().Err(cerr).Msg("failed to record generation result")
			return
		}
	}
	s.finish(userID, st)
}

// finish publishes the terminal event and writes the history row.
func (s *GenerationService) finish(userID string, st *store.Store) {
	final := st.Snapshot()
	switch final.Phase {
	case models.PhaseCompleted:
		s.publish(userID, EventGenerationCompleted,
			supabase.GenerationCompletedPayload(final.ProviderJobID, final.ResultURL))
	case models.PhaseFailed:
		s.publish(userID, EventGenerationFailed,
			supabase.GenerationFailedPayload(final.ProviderJobID, final.FailureReason))
	}

	if s.history == nil {
		return
	}
	record := models.JobRecord{
		UserID:        userID,
		Mode:          final.Mode,
		Prompt:        final.Prompt,
		ImageCount:    len(final.OriginalImages),
		ProviderJobID: final.ProviderJobID,
		Status:        final.Phase,
		ResultURL:     final.ResultURL,
		FailureReason: final.FailureReason,
		PollAttempts:  final.PollAttempts,
	}
	if final.StartedAt != nil {
		record.StartedAt = *final.StartedAt
	}
	if final.FinishedAt != nil {
		record.FinishedAt = *final.FinishedAt
	}

	ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
	defer cancel()
	if err := s.history.RecordJob(ctx, record); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to record job history")
	}
}

func (s *GenerationService) ResetUIState(userID string) (store.State, error) {
	st := s.Session(userID)
	previous := st.Snapshot()
	if err := st.ResetUIState(); err != nil {
		return store.State{}, err
	}
	current := st.Snapshot()
	s.removeUnreferenced(previous, current)
	return current, nil
}

func (s *GenerationService) StartNew(userID string) (store.State, error) {
	st := s.Session(userID)
	previous := st.Snapshot()
	if err := st.StartNew(); err != nil {
		return store.State{}, err
	}
	current := st.Snapshot()
	s.removeUnreferenced(previous, current)
	return current, nil
}

// ClearAll discards the whole session. Uploaded objects and local files are
// deleted best-effort; failures are logged and ignored.
func (s *GenerationService) ClearAll(ctx context.Context, userID string) (store.State, error) {
	st := s.Session(userID)
	dropped, err := st.ClearAll()
	if err != nil {
		return store.State{}, err
	}
	s.cleanup(ctx, userID, dropped)
	return st.Snapshot(), nil
}

func (s *GenerationService) cleanup(ctx context.Context, userID string, dropped store.Dropped) {
	if s.uploader != nil && len(dropped.RemoteURLs) > 0 {
		paths := make([]string, 0, len(dropped.RemoteURLs))
		for _, u := range dropped.RemoteURLs {
			if p, ok := s.uploader.ObjectPathFromURL(u); ok {
				paths = append(paths, p)
			}
		}
		if len(paths) > 0 {
			if err := s.uploader.Remove(ctx, paths); err != nil {
				s.logger.Warn().Err(err).Str("user_id", userID).Int("objects", len(paths)).Msg("failed to remove uploaded objects")
			}
		}
	}
	for _, uri := range dropped.LocalURIs {
		s.removeLocal(uri)
	}
}

func (s *GenerationService) SetViewer(userID string, req models.ViewerRequest) store.State {
	st := s.Session(userID)
	if req.Visible != nil {
		st.SetViewerVisible(*req.Visible)
	}
	if req.CarouselIndex != nil {
		st.SetCarouselIndex(*req.CarouselIndex)
	}
	return st.Snapshot()
}

func (s *GenerationService) ListJobs(ctx context.Context, userID string, limit int) ([]models.JobRecord, error) {
	if s.history == nil {
		return nil, ErrHistoryUnavailable
	}
	if limit <= 0 || limit > defaultHistoryLimit {
		limit = defaultHistoryLimit
	}
	jobs, err := s.history.ListJobs(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

func (s *GenerationService) publish(userID, event string, payload map[string]interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishUserEvent(userID, event, payload); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Str("event", event).Msg("failed to publish event")
	}
}

func (s *GenerationService) removeUnreferenced(previous, current store.State) {
	seen := map[string]bool{}
	candidates := append(previous.LocalURIs(), urisOf(previous.OriginalImages)...)
	for _, uri := range candidates {
		if uri == "" || seen[uri] || referenced(current, uri) {
			continue
		}
		seen[uri] = true
		s.removeLocal(uri)
	}
}

func (s *GenerationService) removeLocal(uri string) {
	if err := storage.RemoveLocalFile(uri); err != nil {
		s.logger.Warn().Err(err).Str("uri", uri).Msg("failed to remove local image")
	}
}

// sessionObserver forwards engine transitions to the store and publishes the
// matching events.
type sessionObserver struct {
	*store.Store
	service *GenerationService
	userID  string
}

func (o *sessionObserver) Submitting(imageURLs []string) {
	o.Store.Submitting(imageURLs)
	o.service.publish(o.userID, EventGenerationSubmitted, supabase.GenerationSubmittedPayload(imageURLs))
}

func (o *sessionObserver) Submitted(providerJobID string) {
	o.Store.Submitted(providerJobID)
	o.service.publish(o.userID, EventGenerationPolling, supabase.GenerationPollingPayload(providerJobID))
}

// buildExtra copies the caller's extra fields and adds the credit hint when
// it is a positive finite number.
func buildExtra(req models.GenerateRequest) map[string]interface{} {
	extra := make(map[string]interface{}, len(req.Extra)+1)
	for k, v := range req.Extra {
		extra[k] = v
	}
	delete(extra, "token")
	if credit, ok := models.ParseCreditHint(req.Token); ok {
		extra["token"] = credit
	}
	if len(extra) == 0 {
		return nil
	}
	return extra
}

func referenced(st store.State, uri string) bool {
	for _, u := range st.LocalURIs() {
		if u == uri {
			return true
		}
	}
	for _, u := range urisOf(st.OriginalImages) {
		if u == uri {
			return true
		}
	}
	return false
}

func urisOf(refs []models.ImageRef) []string {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		out = append(out, ref.LocalURI)
	}
	return out
}

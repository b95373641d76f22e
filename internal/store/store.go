package store

import (
	"errors"
	"sync"
	"time"

	"photo-studio-backend/internal/models"
)

var (
	ErrGenerationInProgress = errors.New("a generation is already in progress")
	ErrNotGenerating        = errors.New("no generation is in progress")
	ErrNoImages             = errors.New("no image selected")
	ErrImageIndex           = errors.New("image index out of range")
)

const defaultFailureReason = "generation failed"

// State is a point-in-time copy of a session. Mutating it has no effect on the
// store.
type State struct {
	Phase          models.Phase
	Mode           models.Mode
	Image          *models.ImageRef
	Images         []models.ImageRef
	OriginalImages []models.ImageRef
	UploadedURLs   []string
	ProviderJobID  string
	ResultURL      string
	FailureReason  string
	ErrorMessage   string
	ViewerVisible  bool
	CarouselIndex  int
	PollAttempts   int
	Prompt         string
	StartedAt      *time.Time
	FinishedAt     *time.Time
}

// HasImage reports whether a local image is selected in either mode.
func (s State) HasImage() bool {
	return s.Image != nil || len(s.Images) > 0
}

// LocalURIs lists the selected images in order.
func (s State) LocalURIs() []string {
	refs := s.selected()
	uris := make([]string, 0, len(refs))
	for _, ref := range refs {
		uris = append(uris, ref.LocalURI)
	}
	return uris
}

func (s State) selected() []models.ImageRef {
	if s.Image != nil {
		return []models.ImageRef{*s.Image}
	}
	return s.Images
}

func (s State) Session() models.SessionState {
	session := models.SessionState{
		Phase:          s.Phase,
		Mode:           s.Mode,
		Image:          s.Image,
		Images:         nonNilRefs(s.Images),
		OriginalImages: nonNilRefs(s.OriginalImages),
		UploadedURLs:   s.UploadedURLs,
		ProviderJobID:  s.ProviderJobID,
		ResultURL:      s.ResultURL,
		FailureReason:  s.FailureReason,
		ErrorMessage:   s.ErrorMessage,
		ViewerVisible:  s.ViewerVisible,
		CarouselIndex:  s.CarouselIndex,
		PollAttempts:   s.PollAttempts,
		Prompt:         s.Prompt,
		StartedAt:      s.StartedAt,
		FinishedAt:     s.FinishedAt,
	}
	if session.UploadedURLs == nil {
		session.UploadedURLs = []string{}
	}
	return session
}

// Dropped is what ClearAll let go of, for best-effort cleanup by the caller.
type Dropped struct {
	RemoteURLs []string
	LocalURIs  []string
}

// Store holds the single job slot of one session. All mutation goes through
// its methods. It also satisfies the workflow observer, so an engine run can
// report transitions straight into it.
type Store struct {
	mu    sync.RWMutex
	state State
	now   func() time.Time
}

func New() *Store {
	return NewWithClock(time.Now)
}

func NewWithClock(now func() time.Time) *Store {
	return &Store{state: State{Phase: models.PhaseIdle}, now: now}
}

func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

func (s *Store) Phase() models.Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Phase
}

// SelectImage picks one image in single mode. A finished job is discarded.
func (s *Store) SelectImage(ref models.ImageRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Phase.Working() {
		return ErrGenerationInProgress
	}
	s.discardFinishedJob()
	ref = freshRef(ref)
	s.state.Mode = models.ModeSingle
	s.state.Image = &ref
	s.state.Images = nil
	s.state.CarouselIndex = 0
	return nil
}

// SelectImages replaces the selection with refs in multi mode.
func (s *Store) SelectImages(refs []models.ImageRef) error {
	if len(refs) == 0 {
		return ErrNoImages
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Phase.Working() {
		return ErrGenerationInProgress
	}
	s.discardFinishedJob()
	s.state.Mode = models.ModeMulti
	s.state.Image = nil
	s.state.Images = freshRefs(refs)
	s.state.CarouselIndex = 0
	return nil
}

// AddImages appends to the multi-mode list. A single selected image becomes
// the first entry.
func (s *Store) AddImages(refs []models.ImageRef) error {
	if len(refs) == 0 {
		return ErrNoImages
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Phase.Working() {
		return ErrGenerationInProgress
	}
	s.discardFinishedJob()
	images := s.state.selected()
	s.state.Mode = models.ModeMulti
	s.state.Image = nil
	s.state.Images = append(freshRefs(images), freshRefs(refs)...)
	return nil
}

// RemoveImage drops index i and closes the gap. Removing the only single-mode
// image clears the selection.
func (s *Store) RemoveImage(i int) (models.ImageRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Phase.Working() {
		return models.ImageRef{}, ErrGenerationInProgress
	}

	if s.state.Image != nil {
		if i != 0 {
			return models.ImageRef{}, ErrImageIndex
		}
		removed := *s.state.Image
		s.state.Image = nil
		s.state.CarouselIndex = 0
		return removed, nil
	}

	if i < 0 || i >= len(s.state.Images) {
		return models.ImageRef{}, ErrImageIndex
	}
	removed := s.state.Images[i]
	images := make([]models.ImageRef, 0, len(s.state.Images)-1)
	images = append(images, s.state.Images[:i]...)
	images = append(images, s.state.Images[i+1:]...)
	if len(images) == 0 {
		images = nil
	}
	s.state.Images = images
	s.state.CarouselIndex = clamp(s.state.CarouselIndex, len(images))
	return removed, nil
}

// StartGeneration claims the job slot. It moves the session into a working
// phase before any network call, so a second call fails until the first job
// reaches a terminal phase. The returned snapshot is what the job runs on.
func (s *Store) StartGeneration(prompt string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Phase.Working() {
		return State{}, ErrGenerationInProgress
	}
	if !s.state.HasImage() {
		return State{}, ErrNoImages
	}

	now := s.now()
	s.state.OriginalImages = freshRefs(s.state.selected())
	if s.state.Image != nil {
		img := freshRef(*s.state.Image)
		s.state.Image = &img
	} else {
		s.state.Images = freshRefs(s.state.Images)
	}
	s.state.ResultURL = ""
	s.state.FailureReason = ""
	s.state.ErrorMessage = ""
	s.state.UploadedURLs = nil
	s.state.ProviderJobID = ""
	s.state.PollAttempts = 0
	s.state.Prompt = prompt
	s.state.StartedAt = &now
	s.state.FinishedAt = nil
	s.state.Phase = models.PhaseUploading
	return s.state.clone(), nil
}

func (s *Store) Uploading(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Phase != models.PhaseUploading {
		return
	}
	if ref := s.imageAt(index); ref != nil {
		ref.UploadStatus = models.UploadUploading
	}
}

func (s *Store) Uploaded(index int, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Phase != models.PhaseUploading {
		return
	}
	if ref := s.imageAt(index); ref != nil {
		ref.RemoteURL = url
		ref.UploadStatus = models.UploadUploaded
	}
	s.state.UploadedURLs = append(s.state.UploadedURLs, url)
}

func (s *Store) Submitting(imageURLs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Phase.Working() {
		return
	}
	s.state.UploadedURLs = append([]string(nil), imageURLs...)
	s.state.Phase = models.PhaseSubmitting
}

func (s *Store) Submitted(providerJobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Phase.Working() {
		return
	}
	s.state.ProviderJobID = providerJobID
	s.state.Phase = models.PhasePolling
}

func (s *Store) Polled(attempt int, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Phase != models.PhasePolling {
		return
	}
	s.state.PollAttempts = attempt
}

// CompleteGeneration ends the running job with its result.
func (s *Store) CompleteGeneration(resultURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Phase.Working() {
		return ErrNotGenerating
	}
	now := s.now()
	s.state.Phase = models.PhaseCompleted
	s.state.ResultURL = resultURL
	s.state.FailureReason = ""
	s.state.ErrorMessage = ""
	s.state.FinishedAt = &now
	return nil
}

// FailGeneration ends the running job with reason. Any partial result or
// uploaded-URL list is dropped and uploads that never finished are marked
// failed.
func (s *Store) FailGeneration(reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Phase.Working() {
		return ErrNotGenerating
	}
	if reason == "" {
		reason = defaultFailureReason
	}
	now := s.now()
	s.state.Phase = models.PhaseFailed
	s.state.FailureReason = reason
	s.state.ErrorMessage = reason
	s.state.ResultURL = ""
	s.state.UploadedURLs = nil
	if s.state.Image != nil {
		markUnfinished(s.state.Image)
	}
	for i := range s.state.Images {
		markUnfinished(&s.state.Images[i])
	}
	s.state.FinishedAt = &now
	return nil
}

// ReportError shows msg to the user without touching the job phase.
func (s *Store) ReportError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ErrorMessage = msg
}

// ResetUIState clears the selection, the originals, the error banner and the
// viewer. A failed job goes back to idle. Calling it twice is the same as
// calling it once.
func (s *Store) ResetUIState() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Phase.Working() {
		return ErrGenerationInProgress
	}
	s.resetUI()
	return nil
}

// StartNew resets the UI and forgets the last result.
func (s *Store) StartNew() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Phase.Working() {
		return ErrGenerationInProgress
	}
	s.state = State{Phase: models.PhaseIdle}
	return nil
}

// ClearAll returns the session to its zero state and reports the uploaded
// objects and local files it dropped.
func (s *Store) ClearAll() (Dropped, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Phase.Working() {
		return Dropped{}, ErrGenerationInProgress
	}

	var dropped Dropped
	seenRemote := map[string]bool{}
	addRemote := func(u string) {
		if u != "" && !seenRemote[u] {
			seenRemote[u] = true
			dropped.RemoteURLs = append(dropped.RemoteURLs, u)
		}
	}
	seenLocal := map[string]bool{}
	addLocal := func(ref models.ImageRef) {
		addRemote(ref.RemoteURL)
		if ref.LocalURI != "" && !seenLocal[ref.LocalURI] {
			seenLocal[ref.LocalURI] = true
			dropped.LocalURIs = append(dropped.LocalURIs, ref.LocalURI)
		}
	}

	for _, u := range s.state.UploadedURLs {
		addRemote(u)
	}
	for _, ref := range s.state.selected() {
		addLocal(ref)
	}
	for _, ref := range s.state.OriginalImages {
		addLocal(ref)
	}

	s.state = State{Phase: models.PhaseIdle}
	return dropped, nil
}

func (s *Store) SetViewerVisible(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ViewerVisible = visible
}

// SetCarouselIndex moves the carousel, clamped to the selected images, and
// returns the index it settled on.
func (s *Store) SetCarouselIndex(i int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.CarouselIndex = clamp(i, len(s.state.selected()))
	return s.state.CarouselIndex
}

func (s *Store) resetUI() {
	s.state.Image = nil
	s.state.Images = nil
	s.state.OriginalImages = nil
	s.state.ErrorMessage = ""
	s.state.ViewerVisible = false
	s.state.CarouselIndex = 0
	if s.state.Phase == models.PhaseFailed {
		s.state.Phase = models.PhaseIdle
		s.state.FailureReason = ""
		s.state.ProviderJobID = ""
		s.state.UploadedURLs = nil
		s.state.PollAttempts = 0
	}
}

// discardFinishedJob returns a terminal session to idle. The originals stay so
// the last "before" image can still be shown.
func (s *Store) discardFinishedJob() {
	if !s.state.Phase.Terminal() {
		return
	}
	s.state.Phase = models.PhaseIdle
	s.state.ResultURL = ""
	s.state.FailureReason = ""
	s.state.ErrorMessage = ""
	s.state.ProviderJobID = ""
	s.state.UploadedURLs = nil
	s.state.PollAttempts = 0
	s.state.StartedAt = nil
	s.state.FinishedAt = nil
}

func (s *Store) imageAt(i int) *models.ImageRef {
	if s.state.Image != nil {
		if i == 0 {
			return s.state.Image
		}
		return nil
	}
	if i < 0 || i >= len(s.state.Images) {
		return nil
	}
	return &s.state.Images[i]
}

func (s State) clone() State {
	out := s
	if s.Image != nil {
		img := *s.Image
		out.Image = &img
	}
	out.Images = cloneRefs(s.Images)
	out.OriginalImages = cloneRefs(s.OriginalImages)
	if s.UploadedURLs != nil {
		out.UploadedURLs = append([]string(nil), s.UploadedURLs...)
	}
	if s.StartedAt != nil {
		t := *s.StartedAt
		out.StartedAt = &t
	}
	if s.FinishedAt != nil {
		t := *s.FinishedAt
		out.FinishedAt = &t
	}
	return out
}

func cloneRefs(refs []models.ImageRef) []models.ImageRef {
	if refs == nil {
		return nil
	}
	return append([]models.ImageRef(nil), refs...)
}

func freshRef(ref models.ImageRef) models.ImageRef {
	return models.NewImageRef(ref.LocalURI)
}

func freshRefs(refs []models.ImageRef) []models.ImageRef {
	out := make([]models.ImageRef, 0, len(refs))
	for _, ref := range refs {
		out = append(out, freshRef(ref))
	}
	return out
}

func nonNilRefs(refs []models.ImageRef) []models.ImageRef {
	if refs == nil {
		return []models.ImageRef{}
	}
	return refs
}

func markUnfinished(ref *models.ImageRef) {
	if ref.UploadStatus != models.UploadUploaded {
		ref.UploadStatus = models.UploadFailed
	}
}

func clamp(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photo-studio-backend/internal/models"
	"photo-studio-backend/internal/store"
)

var fixedNow = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func newStore() *store.Store {
	return store.NewWithClock(func() time.Time { return fixedNow })
}

func refs(uris ...string) []models.ImageRef {
	out := make([]models.ImageRef, 0, len(uris))
	for _, u := range uris {
		out = append(out, models.NewImageRef(u))
	}
	return out
}

func TestNewStoreIsIdle(t *testing.T) {
	s := newStore()
	state := s.Snapshot()
	assert.Equal(t, models.PhaseIdle, state.Phase)
	assert.False(t, state.HasImage())
	assert.True(t, store.Derive(state).IsIdle)
}

func TestStartGenerationSnapshotsOriginals(t *testing.T) {
	s := newStore()
	require.NoError(t, s.SelectImages(refs("file://a.jpg", "file://b.jpg")))

	snap, err := s.StartGeneration("add a hat")
	require.NoError(t, err)

	assert.Equal(t, models.PhaseUploading, snap.Phase)
	assert.Equal(t, "add a hat", snap.Prompt)
	assert.Equal(t, []string{"file://a.jpg", "file://b.jpg"}, snap.LocalURIs())
	require.Len(t, snap.OriginalImages, 2)
	assert.Equal(t, "file://a.jpg", snap.OriginalImages[0].LocalURI)
	require.NotNil(t, snap.StartedAt)
	assert.Equal(t, fixedNow, *snap.StartedAt)
}

func TestStartGenerationRejectsSecondRun(t *testing.T) {
	s := newStore()
	require.NoError(t, s.SelectImage(models.NewImageRef("file://a.jpg")))

	_, err := s.StartGeneration("one")
	require.NoError(t, err)

	_, err = s.StartGeneration("two")
	assert.ErrorIs(t, err, store.ErrGenerationInProgress)
	assert.Equal(t, "one", s.Snapshot().Prompt)
}

func TestStartGenerationNeedsImage(t *testing.T) {
	s := newStore()
	_, err := s.StartGeneration("prompt")
	assert.ErrorIs(t, err, store.ErrNoImages)
	assert.Equal(t, models.PhaseIdle, s.Phase())
}

func TestObserverTransitions(t *testing.T) {
	s := newStore()
	require.NoError(t, s.SelectImages(refs("file://a.jpg", "file://b.jpg")))
	_, err := s.StartGeneration("prompt")
	require.NoError(t, err)

	s.Uploading(0)
	assert.Equal(t, models.UploadUploading, s.Snapshot().Images[0].UploadStatus)
	s.Uploaded(0, "https://cdn/a.jpg")
	s.Uploading(1)
	s.Uploaded(1, "https://cdn/b.jpg")

	state := s.Snapshot()
	assert.Equal(t, []string{"https://cdn/a.jpg", "https://cdn/b.jpg"}, state.UploadedURLs)
	assert.Equal(t, "https://cdn/b.jpg", state.Images[1].RemoteURL)
	assert.Equal(t, models.UploadUploaded, state.Images[1].UploadStatus)

	s.Submitting(state.UploadedURLs)
	assert.Equal(t, models.PhaseSubmitting, s.Phase())
	assert.Empty(t, s.Snapshot().ProviderJobID)

	s.Submitted("42")
	s.Polled(1, "IN_PROGRESS")
	s.Polled(2, "IN_PROGRESS")
	state = s.Snapshot()
	assert.Equal(t, models.PhasePolling, state.Phase)
	assert.Equal(t, "42", state.ProviderJobID)
	assert.Equal(t, 2, state.PollAttempts)

	view := store.Derive(state)
	assert.True(t, view.IsEditing)
	assert.True(t, view.IsGenerating)
}

func TestCompleteGeneration(t *testing.T) {
	s := newStore()
	require.NoError(t, s.SelectImage(models.NewImageRef("file://a.jpg")))
	_, err := s.StartGeneration("prompt")
	require.NoError(t, err)
	s.ReportError("stale banner")

	require.NoError(t, s.CompleteGeneration("https://cdn/x.jpg"))

	state := s.Snapshot()
	assert.Equal(t, models.PhaseCompleted, state.Phase)
	assert.Equal(t, "https://cdn/x.jpg", state.ResultURL)
	assert.Empty(t, state.FailureReason)
	assert.Empty(t, state.ErrorMessage)
	require.NotNil(t, state.FinishedAt)

	assert.ErrorIs(t, s.CompleteGeneration("https://cdn/y.jpg"), store.ErrNotGenerating)
	assert.ErrorIs(t, s.FailGeneration("late"), store.ErrNotGenerating)
}

func TestFailGenerationClearsPartialState(t *testing.T) {
	s := newStore()
	require.NoError(t, s.SelectImages(refs("file://a.jpg", "file://b.jpg")))
	_, err := s.StartGeneration("prompt")
	require.NoError(t, err)
	s.Uploaded(0, "https://cdn/a.jpg")

	require.NoError(t, s.FailGeneration("image could not be uploaded"))

	state := s.Snapshot()
	assert.Equal(t, models.PhaseFailed, state.Phase)
	assert.Equal(t, "image could not be uploaded", state.FailureReason)
	assert.Equal(t, "image could not be uploaded", state.ErrorMessage)
	assert.Empty(t, state.ResultURL)
	assert.Empty(t, state.UploadedURLs)
	assert.Equal(t, models.UploadUploaded, state.Images[0].UploadStatus)
	assert.Equal(t, models.UploadFailed, state.Images[1].UploadStatus)
}

func TestFailGenerationDefaultReason(t *testing.T) {
	s := newStore()
	require.NoError(t, s.SelectImage(models.NewImageRef("file://a.jpg")))
	_, err := s.StartGeneration("prompt")
	require.NoError(t, err)

	require.NoError(t, s.FailGeneration(""))
	assert.NotEmpty(t, s.Snapshot().FailureReason)
}

func TestNewJobClearsPreviousResult(t *testing.T) {
	s := newStore()
	require.NoError(t, s.SelectImage(models.NewImageRef("file://a.jpg")))
	_, err := s.StartGeneration("first")
	require.NoError(t, err)
	require.NoError(t, s.CompleteGeneration("https://cdn/x.jpg"))

	_, err = s.StartGeneration("second")
	require.NoError(t, err)

	state := s.Snapshot()
	assert.Empty(t, state.ResultURL)
	view := store.Derive(state)
	assert.True(t, view.IsGenerating)
	assert.False(t, view.HasResult)
	assert.True(t, view.IsEditing)
}

func TestTerminalExclusivity(t *testing.T) {
	finish := []func(*store.Store) error{
		func(s *store.Store) error { return s.CompleteGeneration("https://cdn/x.jpg") },
		func(s *store.Store) error { return s.FailGeneration("generation failed: nsfw") },
		func(s *store.Store) error { return s.FailGeneration("") },
	}
	for _, f := range finish {
		s := newStore()
		require.NoError(t, s.SelectImage(models.NewImageRef("file://a.jpg")))
		_, err := s.StartGeneration("prompt")
		require.NoError(t, err)
		require.NoError(t, f(s))

		state := s.Snapshot()
		assert.True(t, (state.ResultURL != "") != (state.FailureReason != ""),
			"exactly one of result and failure must be set: %+v", state)
	}
}

func TestSelectImageRejectedWhileWorking(t *testing.T) {
	s := newStore()
	require.NoError(t, s.SelectImage(models.NewImageRef("file://a.jpg")))
	_, err := s.StartGeneration("prompt")
	require.NoError(t, err)

	assert.ErrorIs(t, s.SelectImage(models.NewImageRef("file://b.jpg")), store.ErrGenerationInProgress)
	assert.ErrorIs(t, s.SelectImages(refs("file://b.jpg")), store.ErrGenerationInProgress)
	assert.ErrorIs(t, s.AddImages(refs("file://b.jpg")), store.ErrGenerationInProgress)
	assert.ErrorIs(t, s.ResetUIState(), store.ErrGenerationInProgress)
	assert.ErrorIs(t, s.StartNew(), store.ErrGenerationInProgress)
	_, err = s.RemoveImage(0)
	assert.ErrorIs(t, err, store.ErrGenerationInProgress)
	_, err = s.ClearAll()
	assert.ErrorIs(t, err, store.ErrGenerationInProgress)
}

func TestSelectImageDiscardsFinishedJob(t *testing.T) {
	s := newStore()
	require.NoError(t, s.SelectImage(models.NewImageRef("file://a.jpg")))
	_, err := s.StartGeneration("prompt")
	require.NoError(t, err)
	require.NoError(t, s.CompleteGeneration("https://cdn/x.jpg"))

	require.NoError(t, s.SelectImage(models.NewImageRef("file://b.jpg")))

	state := s.Snapshot()
	assert.Equal(t, models.PhaseIdle, state.Phase)
	assert.Empty(t, state.ResultURL)
	assert.Empty(t, state.ProviderJobID)
	assert.Equal(t, "file://b.jpg", state.Image.LocalURI)
	require.Len(t, state.OriginalImages, 1)
	assert.Equal(t, "file://a.jpg", state.OriginalImages[0].LocalURI)
}

func TestAddImagesPromotesSingleSelection(t *testing.T) {
	s := newStore()
	require.NoError(t, s.SelectImage(models.NewImageRef("file://a.jpg")))
	require.NoError(t, s.AddImages(refs("file://b.jpg", "file://c.jpg")))

	state := s.Snapshot()
	assert.Equal(t, models.ModeMulti, state.Mode)
	assert.Nil(t, state.Image)
	assert.Equal(t, []string{"file://a.jpg", "file://b.jpg", "file://c.jpg"}, state.LocalURIs())

	assert.ErrorIs(t, s.AddImages(nil), store.ErrNoImages)
	assert.ErrorIs(t, s.SelectImages(nil), store.ErrNoImages)
}

func TestRemoveImageKeepsOrder(t *testing.T) {
	s := newStore()
	require.NoError(t, s.SelectImages(refs("file://a.jpg", "file://b.jpg", "file://c.jpg", "file://d.jpg")))
	assert.Equal(t, 3, s.SetCarouselIndex(3))

	removed, err := s.RemoveImage(1)
	require.NoError(t, err)
	assert.Equal(t, "file://b.jpg", removed.LocalURI)

	state := s.Snapshot()
	assert.Equal(t, []string{"file://a.jpg", "file://c.jpg", "file://d.jpg"}, state.LocalURIs())
	assert.Equal(t, 2, state.CarouselIndex)

	_, err = s.RemoveImage(3)
	assert.ErrorIs(t, err, store.ErrImageIndex)
	_, err = s.RemoveImage(-1)
	assert.ErrorIs(t, err, store.ErrImageIndex)

	for i := 0; i < 3; i++ {
		_, err = s.RemoveImage(0)
		require.NoError(t, err)
	}
	state = s.Snapshot()
	assert.False(t, state.HasImage())
	assert.Zero(t, state.CarouselIndex)
	assert.True(t, store.Derive(state).IsIdle)
}

func TestRemoveSingleImage(t *testing.T) {
	s := newStore()
	require.NoError(t, s.SelectImage(models.NewImageRef("file://a.jpg")))

	_, err := s.RemoveImage(1)
	assert.ErrorIs(t, err, store.ErrImageIndex)

	removed, err := s.RemoveImage(0)
	require.NoError(t, err)
	assert.Equal(t, "file://a.jpg", removed.LocalURI)
	assert.False(t, s.Snapshot().HasImage())
}

func TestResetUIStateIsIdempotent(t *testing.T) {
	s := newStore()
	require.NoError(t, s.SelectImages(refs("file://a.jpg", "file://b.jpg")))
	_, err := s.StartGeneration("prompt")
	require.NoError(t, err)
	require.NoError(t, s.FailGeneration("provider down"))
	s.SetViewerVisible(true)

	require.NoError(t, s.ResetUIState())
	once := s.Snapshot()
	require.NoError(t, s.ResetUIState())
	twice := s.Snapshot()

	assert.Equal(t, once, twice)
	assert.Equal(t, models.PhaseIdle, once.Phase)
	assert.Empty(t, once.FailureReason)
	assert.Empty(t, once.ErrorMessage)
	assert.False(t, once.ViewerVisible)
	assert.False(t, once.HasImage())
	assert.Empty(t, once.OriginalImages)
}

func TestResetUIStateKeepsResult(t *testing.T) {
	s := newStore()
	require.NoError(t, s.SelectImage(models.NewImageRef("file://a.jpg")))
	_, err := s.StartGeneration("prompt")
	require.NoError(t, err)
	require.NoError(t, s.CompleteGeneration("https://cdn/x.jpg"))

	require.NoError(t, s.ResetUIState())
	state := s.Snapshot()
	assert.Equal(t, "https://cdn/x.jpg", state.ResultURL)
	assert.True(t, store.Derive(state).HasResult)

	require.NoError(t, s.StartNew())
	state = s.Snapshot()
	assert.Equal(t, models.PhaseIdle, state.Phase)
	assert.Empty(t, state.ResultURL)
	assert.True(t, store.Derive(state).IsIdle)
}

func TestClearAllReportsDroppedObjects(t *testing.T) {
	s := newStore()
	require.NoError(t, s.SelectImages(refs("file://a.jpg", "file://b.jpg")))
	_, err := s.StartGeneration("prompt")
	require.NoError(t, err)
	s.Uploaded(0, "https://cdn/a.jpg")
	s.Uploaded(1, "https://cdn/b.jpg")
	s.Submitting([]string{"https://cdn/a.jpg", "https://cdn/b.jpg"})
	s.Submitted("42")
	require.NoError(t, s.CompleteGeneration("https://cdn/x.jpg"))

	dropped, err := s.ClearAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn/a.jpg", "https://cdn/b.jpg"}, dropped.RemoteURLs)
	assert.Equal(t, []string{"file://a.jpg", "file://b.jpg"}, dropped.LocalURIs)

	state := s.Snapshot()
	assert.Equal(t, store.State{Phase: models.PhaseIdle}, state)

	dropped, err = s.ClearAll()
	require.NoError(t, err)
	assert.Empty(t, dropped.RemoteURLs)
	assert.Empty(t, dropped.LocalURIs)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := newStore()
	require.NoError(t, s.SelectImages(refs("file://a.jpg")))

	state := s.Snapshot()
	state.Images[0].LocalURI = "file://mutated.jpg"

	assert.Equal(t, "file://a.jpg", s.Snapshot().Images[0].LocalURI)
}

func TestSetCarouselIndexClamps(t *testing.T) {
	s := newStore()
	assert.Zero(t, s.SetCarouselIndex(5))

	require.NoError(t, s.SelectImages(refs("file://a.jpg", "file://b.jpg")))
	assert.Equal(t, 1, s.SetCarouselIndex(5))
	assert.Equal(t, 0, s.SetCarouselIndex(-2))
}

func TestSessionResponseHasNoNilSlices(t *testing.T) {
	session := newStore().Snapshot().Session()
	assert.NotNil(t, session.Images)
	assert.NotNil(t, session.OriginalImages)
	assert.NotNil(t, session.UploadedURLs)
}

package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ZyrticX/MP4/internal/jd"
	"github.com/ZyrticX/MP4/internal/models"
	"github.com/ZyrticX/MP4/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// pollStep is one scripted answer to a monitoring pass.
type pollStep struct {
	packages []jd.FilePackage
	links    []jd.DownloadLink
	err      error
}

// fakeClient scripts the remote device. The crawl answers and poll
// steps are consumed in order; the last poll step repeats forever.
type fakeClient struct {
	mu sync.Mutex

	connectErr        error
	collectingAnswers []bool
	collectingForever bool
	crawledPackages   []jd.CrawledPackage
	crawledLinks      []jd.CrawledLink
	variants          map[int64][]jd.LinkVariant
	pollScript        []pollStep

	abortCalls     int
	pollCalls      int
	moveCalls      int
	startCalls     int
	removeDLCalls  int
	removeGrbCalls int
	grabberDir        string
	chosenVariants    map[int64]string
	heldLinks         []jd.DownloadLink
	removedLinkIDs    []int64
	removedPackageIDs []int64
}

func (c *fakeClient) EnsureConnected(context.Context) error { return c.connectErr }

func (c *fakeClient) AddLinks(_ context.Context, q jd.AddLinksQuery) (*jd.LinkCollectingJob, error) {
	return &jd.LinkCollectingJob{ID: 4711}, nil
}

func (c *fakeClient) IsCollecting(context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.collectingForever {
		return true, nil
	}
	if len(c.collectingAnswers) == 0 {
		return false, nil
	}
	answer := c.collectingAnswers[0]
	c.collectingAnswers = c.collectingAnswers[1:]
	return answer, nil
}

func (c *fakeClient) AbortCollection(context.Context, int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abortCalls++
	return true, nil
}

func (c *fakeClient) QueryCrawledLinks(context.Context, jd.CrawledLinkQuery) ([]jd.CrawledLink, error) {
	return c.crawledLinks, nil
}

func (c *fakeClient) QueryCrawledPackages(context.Context, jd.CrawledPackageQuery) ([]jd.CrawledPackage, error) {
	return c.crawledPackages, nil
}

func (c *fakeClient) GetVariants(_ context.Context, linkID int64) ([]jd.LinkVariant, error) {
	return c.variants[linkID], nil
}

func (c *fakeClient) SetVariant(_ context.Context, linkID int64, variantID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chosenVariants == nil {
		c.chosenVariants = map[int64]string{}
	}
	c.chosenVariants[linkID] = variantID
	return nil
}

func (c *fakeClient) SetGrabberDownloadDirectory(_ context.Context, dir string, _ []int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.grabberDir = dir
	return nil
}

func (c *fakeClient) MoveToDownloadList(context.Context, []int64, []int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.moveCalls++
	return nil
}

func (c *fakeClient) StartDownloads(context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startCalls++
	return true, nil
}

func (c *fakeClient) currentPoll() pollStep {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pollCalls++
	if len(c.pollScript) == 0 {
		return pollStep{}
	}
	step := c.pollScript[0]
	if len(c.pollScript) > 1 {
		c.pollScript = c.pollScript[1:]
	}
	return step
}

func (c *fakeClient) QueryDownloadPackages(context.Context, jd.PackageQuery) ([]jd.FilePackage, error) {
	step := c.currentPoll()
	if step.err != nil {
		return nil, step.err
	}
	// Hold the step for the paired links query of the same pass.
	c.mu.Lock()
	c.heldLinks = step.links
	c.mu.Unlock()
	return step.packages, nil
}

func (c *fakeClient) QueryDownloadLinks(context.Context, jd.LinkQuery) ([]jd.DownloadLink, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.heldLinks, nil
}

func (c *fakeClient) RemoveDownloadLinks(_ context.Context, linkIDs, packageIDs []int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeDLCalls++
	c.removedLinkIDs = linkIDs
	c.removedPackageIDs = packageIDs
	return nil
}

func (c *fakeClient) RemoveFromGrabber(_ context.Context, linkIDs, packageIDs []int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeGrbCalls++
	c.removedLinkIDs = linkIDs
	c.removedPackageIDs = packageIDs
	return nil
}

// fakeRepo is an in-memory JobRepository. It keeps every persisted
// progress value in order so tests can assert on the whole sequence.
type fakeRepo struct {
	mu          sync.Mutex
	jobs        map[string]*models.Job
	progressLog []int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{jobs: map[string]*models.Job{}}
}

func (r *fakeRepo) Create(_ context.Context, job *models.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *job
	r.jobs[job.ID] = &copied
	return nil
}

func (r *fakeRepo) Update(_ context.Context, id string, upd models.JobUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return repository.ErrNotFound
	}
	if upd.Status != nil {
		j.Status = *upd.Status
	}
	if upd.Progress != nil {
		j.Progress = *upd.Progress
		r.progressLog = append(r.progressLog, *upd.Progress)
	}
	if upd.SpeedBps != nil {
		j.SpeedBps = *upd.SpeedBps
	}
	if upd.ETASeconds != nil {
		j.ETASeconds = *upd.ETASeconds
	}
	if upd.RemoteJobID != nil {
		j.RemoteJobID = *upd.RemoteJobID
	}
	if upd.RemotePackageID != nil {
		j.RemotePackageID = *upd.RemotePackageID
	}
	if upd.RemoteLinkIDs != nil {
		j.RemoteLinkIDs = *upd.RemoteLinkIDs
	}
	if upd.FileName != nil {
		j.FileName = *upd.FileName
	}
	if upd.FileSize != nil {
		j.FileSize = *upd.FileSize
	}
	if upd.FilePath != nil {
		j.FilePath = *upd.FilePath
	}
	if upd.Title != nil {
		j.Title = *upd.Title
	}
	if upd.Host != nil {
		j.Host = *upd.Host
	}
	if upd.LinkCount != nil {
		j.LinkCount = *upd.LinkCount
	}
	if upd.Availability != nil {
		j.Availability = *upd.Availability
	}
	if upd.ErrorMessage != nil {
		j.ErrorMessage = *upd.ErrorMessage
	}
	if upd.RetryCount != nil {
		j.RetryCount = *upd.RetryCount
	}
	if upd.StartedAt != nil {
		j.StartedAt = upd.StartedAt
	}
	if upd.CompletedAt != nil {
		j.CompletedAt = upd.CompletedAt
	}
	j.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *j
	return &copied, nil
}

func (r *fakeRepo) ListByUser(_ context.Context, userID string, limit int) ([]models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Job
	for _, j := range r.jobs {
		if j.UserID == userID && len(out) < limit {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListActive(_ context.Context) ([]models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Job
	for _, j := range r.jobs {
		if !j.Status.Terminal() {
			out = append(out, *j)
		}
	}
	return out, nil
}

func fastOptions() Options {
	return Options{
		DownloadPath:        "/downloads",
		CrawlInterval:       time.Millisecond,
		CrawlTimeout:        time.Second,
		MonitorInterval:     time.Millisecond,
		MonitorFailureLimit: 3,
	}
}

func waitForStatus(t *testing.T, repo *fakeRepo, id string, want models.JobStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := repo.GetByID(context.Background(), id)
		require.NoError(t, err)
		if job.Status == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", id, want)
}

func TestSubmit_CompletesJob(t *testing.T) {
	client := &fakeClient{
		collectingAnswers: []bool{true, false},
		crawledPackages: []jd.CrawledPackage{
			{UUID: 100, Name: "My Video", BytesTotal: 5000, ChildCount: 1},
		},
		crawledLinks: []jd.CrawledLink{
			{UUID: 200, PackageUUID: 100, Name: "video.mp4", Host: "youtube.com",
				BytesTotal: 5000, Availability: "ONLINE", Variants: true},
		},
		variants: map[int64][]jd.LinkVariant{
			200: {{ID: "v720", Name: "720p MP4"}, {ID: "v1080", Name: "1080p MP4"}},
		},
		pollScript: []pollStep{
			{packages: []jd.FilePackage{{UUID: 100, BytesLoaded: 2500, BytesTotal: 5000, Speed: 1234, ETA: 4}}},
			{packages: []jd.FilePackage{{UUID: 100, BytesLoaded: 5000, BytesTotal: 5000, Finished: true, SaveTo: "/downloads/My Video"}}},
		},
	}
	repo := newFakeRepo()
	svc := NewDownloadService(client, repo, zap.NewNop(), fastOptions())

	job, err := svc.Submit(context.Background(), SubmitRequest{
		URL:    "https://www.youtube.com/watch?v=abc",
		UserID: "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, job.Status)
	assert.Equal(t, "youtube", job.Platform)
	assert.Equal(t, models.MediaVideo, job.MediaType)
	assert.Equal(t, "1080p", job.Quality)

	svc.Wait()

	final, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, final.Status)
	assert.Equal(t, 100, final.Progress)
	assert.Equal(t, "video.mp4", final.FileName)
	assert.Equal(t, int64(5000), final.FileSize)
	assert.Equal(t, "/downloads/My Video", final.FilePath)
	assert.Equal(t, "My Video", final.Title)
	assert.Equal(t, "youtube.com", final.Host)
	assert.Equal(t, 1, final.LinkCount)
	assert.Equal(t, "ONLINE", final.Availability)
	assert.Equal(t, int64(4711), final.RemoteJobID)
	assert.Equal(t, int64(100), final.RemotePackageID)
	assert.Equal(t, []int64{200}, final.RemoteLinkIDs)
	require.NotNil(t, final.StartedAt)
	require.NotNil(t, final.CompletedAt)

	assert.Equal(t, "v1080", client.chosenVariants[200])
	assert.Equal(t, "/downloads", client.grabberDir)
	assert.Equal(t, 1, client.moveCalls)
	assert.Equal(t, 1, client.startCalls)
}

func TestSubmit_RejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		req  SubmitRequest
	}{
		{name: "relative url", req: SubmitRequest{URL: "not-a-url"}},
		{name: "unsupported scheme", req: SubmitRequest{URL: "ftp://example.com/file"}},
		{name: "bad media type", req: SubmitRequest{URL: "https://example.com/v", MediaType: "hologram"}},
	}

	svc := NewDownloadService(&fakeClient{}, newFakeRepo(), zap.NewNop(), fastOptions())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), tt.req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}
}

func TestProcess_CrawlTimeoutAbortsOnce(t *testing.T) {
	client := &fakeClient{collectingForever: true}
	repo := newFakeRepo()
	opts := fastOptions()
	opts.CrawlTimeout = 10 * time.Millisecond
	svc := NewDownloadService(client, repo, zap.NewNop(), opts)

	job, err := svc.Submit(context.Background(), SubmitRequest{URL: "https://vimeo.com/123"})
	require.NoError(t, err)
	svc.Wait()

	final, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, final.Status)
	assert.Equal(t, ErrCrawlTimeout.Error(), final.ErrorMessage)
	assert.Equal(t, 1, final.RetryCount)
	assert.Equal(t, 1, client.abortCalls)
}

func TestProcess_NoLinksFails(t *testing.T) {
	client := &fakeClient{}
	repo := newFakeRepo()
	svc := NewDownloadService(client, repo, zap.NewNop(), fastOptions())

	job, err := svc.Submit(context.Background(), SubmitRequest{URL: "https://example.com/page"})
	require.NoError(t, err)
	svc.Wait()

	final, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, final.Status)
	assert.Equal(t, "no downloadable links found for this URL", final.ErrorMessage)
}

func TestMonitor_PackageVanishedCompletes(t *testing.T) {
	client := &fakeClient{
		crawledPackages: []jd.CrawledPackage{{UUID: 100, Name: "Clip"}},
		crawledLinks:    []jd.CrawledLink{{UUID: 200, PackageUUID: 100, Name: "clip.mp4", BytesTotal: 10}},
		pollScript: []pollStep{
			{links: []jd.DownloadLink{{UUID: 200, Finished: true}}},
		},
	}
	repo := newFakeRepo()
	svc := NewDownloadService(client, repo, zap.NewNop(), fastOptions())

	job, err := svc.Submit(context.Background(), SubmitRequest{URL: "https://example.com/clip"})
	require.NoError(t, err)
	svc.Wait()

	final, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, final.Status)
	assert.Equal(t, 100, final.Progress)
	require.NotNil(t, final.CompletedAt)
}

func TestMonitor_ProgressStaysClampedAndMonotonic(t *testing.T) {
	// The device occasionally reports nonsense byte counts (negative
	// bytesLoaded before transfer starts, bytesLoaded past bytesTotal
	// during finalization); persisted progress must still stay inside
	// [0,100] and never move backwards.
	client := &fakeClient{
		crawledPackages: []jd.CrawledPackage{{UUID: 100, Name: "Clip"}},
		crawledLinks:    []jd.CrawledLink{{UUID: 200, PackageUUID: 100, Name: "clip.mp4", BytesTotal: 5000}},
		pollScript: []pollStep{
			{packages: []jd.FilePackage{{UUID: 100, BytesLoaded: -100, BytesTotal: 5000}}},
			{packages: []jd.FilePackage{{UUID: 100, BytesLoaded: 1000, BytesTotal: 5000}}},
			{packages: []jd.FilePackage{{UUID: 100, BytesLoaded: 2500, BytesTotal: 5000}}},
			{packages: []jd.FilePackage{{UUID: 100, BytesLoaded: 6000, BytesTotal: 5000}}},
			{packages: []jd.FilePackage{{UUID: 100, BytesLoaded: 5000, BytesTotal: 5000, Finished: true, SaveTo: "/downloads/Clip"}}},
		},
	}
	repo := newFakeRepo()
	svc := NewDownloadService(client, repo, zap.NewNop(), fastOptions())

	job, err := svc.Submit(context.Background(), SubmitRequest{URL: "https://example.com/clip"})
	require.NoError(t, err)
	svc.Wait()

	final, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, final.Status)

	// Five polls plus the final completion write.
	require.Equal(t, []int{0, 20, 50, 100, 100, 100}, repo.progressLog)
	prev := 0
	for i, p := range repo.progressLog {
		assert.GreaterOrEqual(t, p, 0, "poll %d", i)
		assert.LessOrEqual(t, p, 100, "poll %d", i)
		assert.GreaterOrEqual(t, p, prev, "poll %d", i)
		prev = p
	}
}

func TestMonitor_GivesUpAfterRepeatedFailures(t *testing.T) {
	client := &fakeClient{
		crawledPackages: []jd.CrawledPackage{{UUID: 100, Name: "Clip"}},
		crawledLinks:    []jd.CrawledLink{{UUID: 200, PackageUUID: 100, Name: "clip.mp4"}},
		pollScript:      []pollStep{{err: errors.New("device offline")}},
	}
	repo := newFakeRepo()
	svc := NewDownloadService(client, repo, zap.NewNop(), fastOptions())

	job, err := svc.Submit(context.Background(), SubmitRequest{URL: "https://example.com/clip"})
	require.NoError(t, err)
	svc.Wait()

	// Monitoring stops but the job is not failed; the download may
	// still finish on the device.
	final, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDownloading, final.Status)
	assert.Equal(t, 3, client.pollCalls)
}

func TestCancel_StopsProcessing(t *testing.T) {
	client := &fakeClient{collectingForever: true}
	repo := newFakeRepo()
	opts := fastOptions()
	opts.CrawlTimeout = time.Minute
	svc := NewDownloadService(client, repo, zap.NewNop(), opts)

	job, err := svc.Submit(context.Background(), SubmitRequest{URL: "https://example.com/v"})
	require.NoError(t, err)
	waitForStatus(t, repo, job.ID, models.StatusCrawling)

	require.NoError(t, svc.Cancel(context.Background(), job.ID))
	svc.Wait()

	final, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, final.Status)

	// Cancelling again is a no-op.
	require.NoError(t, svc.Cancel(context.Background(), job.ID))
	final, err = repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, final.Status)
}

func TestCancel_CleansUpRemoteState(t *testing.T) {
	client := &fakeClient{}
	repo := newFakeRepo()
	svc := NewDownloadService(client, repo, zap.NewNop(), fastOptions())

	job := &models.Job{
		ID:              "job-1",
		SourceURL:       "https://example.com/v",
		Status:          models.StatusDownloading,
		RemotePackageID: 100,
		RemoteLinkIDs:   []int64{200, 201},
	}
	require.NoError(t, repo.Create(context.Background(), job))

	require.NoError(t, svc.Cancel(context.Background(), job.ID))

	final, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, final.Status)
	assert.Equal(t, 1, client.removeDLCalls)
	assert.Equal(t, 1, client.removeGrbCalls)
}

func TestCancel_NoKnownPackage(t *testing.T) {
	// Links can be known before a package is (the crawl resolved links
	// but the job was cancelled mid-resolution); cleanup must not name
	// a phantom package id 0.
	client := &fakeClient{}
	repo := newFakeRepo()
	svc := NewDownloadService(client, repo, zap.NewNop(), fastOptions())

	job := &models.Job{
		ID:            "job-1",
		SourceURL:     "https://example.com/v",
		Status:        models.StatusReady,
		RemoteLinkIDs: []int64{200, 201},
	}
	require.NoError(t, repo.Create(context.Background(), job))

	require.NoError(t, svc.Cancel(context.Background(), job.ID))

	assert.Equal(t, 1, client.removeDLCalls)
	assert.Equal(t, 1, client.removeGrbCalls)
	assert.Equal(t, []int64{200, 201}, client.removedLinkIDs)
	assert.Empty(t, client.removedPackageIDs)
}

func TestCancel_UnknownJob(t *testing.T) {
	svc := NewDownloadService(&fakeClient{}, newFakeRepo(), zap.NewNop(), fastOptions())
	err := svc.Cancel(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRetry_ResetsAndReprocesses(t *testing.T) {
	client := &fakeClient{
		crawledPackages: []jd.CrawledPackage{{UUID: 300, Name: "Second Try"}},
		crawledLinks:    []jd.CrawledLink{{UUID: 400, PackageUUID: 300, Name: "try.mp4", BytesTotal: 42}},
		pollScript: []pollStep{
			{packages: []jd.FilePackage{{UUID: 300, BytesLoaded: 42, BytesTotal: 42, Finished: true, SaveTo: "/downloads/Second Try"}}},
		},
	}
	repo := newFakeRepo()
	svc := NewDownloadService(client, repo, zap.NewNop(), fastOptions())

	failed := &models.Job{
		ID:              "job-1",
		SourceURL:       "https://example.com/v",
		MediaType:       models.MediaVideo,
		Quality:         "720p",
		Status:          models.StatusFailed,
		Progress:        37,
		ErrorMessage:    "device offline",
		RetryCount:      1,
		RemoteJobID:     4710,
		RemotePackageID: 99,
		RemoteLinkIDs:   []int64{150},
	}
	require.NoError(t, repo.Create(context.Background(), failed))

	job, err := svc.Retry(context.Background(), failed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, job.Status)
	assert.Equal(t, 0, job.Progress)
	assert.Empty(t, job.ErrorMessage)
	assert.Zero(t, job.RemoteJobID)
	assert.Zero(t, job.RemotePackageID)
	assert.Empty(t, job.RemoteLinkIDs)
	assert.Equal(t, 1, job.RetryCount)

	svc.Wait()

	final, err := repo.GetByID(context.Background(), failed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, final.Status)
	assert.Equal(t, int64(300), final.RemotePackageID)
}

func TestRetry_RejectsNonTerminalStates(t *testing.T) {
	repo := newFakeRepo()
	svc := NewDownloadService(&fakeClient{}, repo, zap.NewNop(), fastOptions())

	for _, status := range []models.JobStatus{
		models.StatusPending, models.StatusCrawling, models.StatusReady,
		models.StatusDownloading, models.StatusCompleted,
	} {
		job := &models.Job{ID: "job-" + string(status), SourceURL: "https://example.com/v", Status: status}
		require.NoError(t, repo.Create(context.Background(), job))

		_, err := svc.Retry(context.Background(), job.ID)
		assert.ErrorIs(t, err, ErrNotRetryable, "status %s", status)
	}

	_, err := svc.Retry(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResumeInterrupted(t *testing.T) {
	repo := newFakeRepo()
	svc := NewDownloadService(&fakeClient{}, repo, zap.NewNop(), fastOptions())

	for id, status := range map[string]models.JobStatus{
		"a": models.StatusPending,
		"b": models.StatusDownloading,
		"c": models.StatusCompleted,
	} {
		require.NoError(t, repo.Create(context.Background(), &models.Job{
			ID: id, SourceURL: "https://example.com/v", Status: status,
		}))
	}

	require.NoError(t, svc.ResumeInterrupted(context.Background()))

	for _, id := range []string{"a", "b"} {
		job, err := repo.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusFailed, job.Status, "job %s", id)
		assert.Equal(t, "interrupted by server restart", job.ErrorMessage)
		assert.Equal(t, 1, job.RetryCount)
	}

	done, err := repo.GetByID(context.Background(), "c")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)
	assert.Empty(t, done.ErrorMessage)
}

func TestListForUser_DefaultLimit(t *testing.T) {
	repo := newFakeRepo()
	svc := NewDownloadService(&fakeClient{}, repo, zap.NewNop(), fastOptions())

	for i := 0; i < 25; i++ {
		require.NoError(t, repo.Create(context.Background(), &models.Job{
			ID: string(rune('a'+i)), UserID: "user-1",
			SourceURL: "https://example.com/v", Status: models.StatusCompleted,
		}))
	}

	jobs, err := svc.ListForUser(context.Background(), "user-1", 0)
	require.NoError(t, err)
	assert.Len(t, jobs, 20)
}

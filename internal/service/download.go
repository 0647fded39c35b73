// Package service implements the download job orchestrator: a
// per-submission state machine that drives a URL through crawling,
// quality selection, download, and completion on the remote device.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/ZyrticX/MP4/internal/jd"
	"github.com/ZyrticX/MP4/internal/models"
	"github.com/ZyrticX/MP4/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a job id is unknown.
var ErrNotFound = repository.ErrNotFound

// ErrNotRetryable is returned when retry is requested for a job that
// is not in a failed or cancelled state.
var ErrNotRetryable = errors.New("only failed or cancelled jobs can be retried")

// ErrCrawlTimeout is returned when the remote crawl does not settle
// within the configured ceiling.
var ErrCrawlTimeout = errors.New("link crawling timed out")

// ValidationError rejects malformed input before any remote call.
type ValidationError struct {
	// Field names the offending input.
	Field string
	// Reason says what is wrong with it.
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DeviceClient is the slice of the remote RPC surface the orchestrator
// drives. All calls for one job are strictly sequential.
type DeviceClient interface {
	EnsureConnected(ctx context.Context) error
	AddLinks(ctx context.Context, q jd.AddLinksQuery) (*jd.LinkCollectingJob, error)
	IsCollecting(ctx context.Context) (bool, error)
	AbortCollection(ctx context.Context, jobID int64) (bool, error)
	QueryCrawledLinks(ctx context.Context, q jd.CrawledLinkQuery) ([]jd.CrawledLink, error)
	QueryCrawledPackages(ctx context.Context, q jd.CrawledPackageQuery) ([]jd.CrawledPackage, error)
	GetVariants(ctx context.Context, linkID int64) ([]jd.LinkVariant, error)
	SetVariant(ctx context.Context, linkID int64, variantID string) error
	SetGrabberDownloadDirectory(ctx context.Context, directory string, packageIDs []int64) error
	MoveToDownloadList(ctx context.Context, linkIDs, packageIDs []int64) error
	StartDownloads(ctx context.Context) (bool, error)
	QueryDownloadLinks(ctx context.Context, q jd.LinkQuery) ([]jd.DownloadLink, error)
	QueryDownloadPackages(ctx context.Context, q jd.PackageQuery) ([]jd.FilePackage, error)
	RemoveDownloadLinks(ctx context.Context, linkIDs, packageIDs []int64) error
	RemoveFromGrabber(ctx context.Context, linkIDs, packageIDs []int64) error
}

// JobRepository defines the persistence operations needed by the
// orchestrator. Every call is a single-record read or write.
type JobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	Update(ctx context.Context, id string, upd models.JobUpdate) error
	GetByID(ctx context.Context, id string) (*models.Job, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Job, error)
	ListActive(ctx context.Context) ([]models.Job, error)
}

// SubmitRequest carries one download submission.
type SubmitRequest struct {
	URL       string
	UserID    string
	MediaType models.MediaType
	Quality   string
}

// Options tunes the orchestrator's polling behavior. Zero values fall
// back to the defaults noted per field.
type Options struct {
	// DownloadPath is the directory on the remote device crawled
	// packages are pointed at.
	DownloadPath string
	// CrawlInterval is the crawl poll period. Default 1s.
	CrawlInterval time.Duration
	// CrawlTimeout is the crawl ceiling. Default 60s.
	CrawlTimeout time.Duration
	// MonitorInterval is the progress poll period. Default 2s.
	MonitorInterval time.Duration
	// MonitorFailureLimit is how many consecutive poll failures are
	// tolerated before monitoring gives up. Default 3.
	MonitorFailureLimit int
}

const (
	defaultCrawlInterval       = time.Second
	defaultCrawlTimeout        = 60 * time.Second
	defaultMonitorInterval     = 2 * time.Second
	defaultMonitorFailureLimit = 3
	defaultQuality             = "1080p"
	defaultListLimit           = 20
)

// DownloadService orchestrates download jobs. Each job runs as an
// independent goroutine; jobs share no mutable state beyond the store
// and the relay session, which is read-only after the handshake.
type DownloadService struct {
	client DeviceClient
	repo   JobRepository
	log    *zap.Logger
	opts   Options

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewDownloadService constructs a DownloadService. Zero fields of opts
// are replaced with defaults.
func NewDownloadService(client DeviceClient, repo JobRepository, log *zap.Logger, opts Options) *DownloadService {
	if opts.CrawlInterval <= 0 {
		opts.CrawlInterval = defaultCrawlInterval
	}
	if opts.CrawlTimeout <= 0 {
		opts.CrawlTimeout = defaultCrawlTimeout
	}
	if opts.MonitorInterval <= 0 {
		opts.MonitorInterval = defaultMonitorInterval
	}
	if opts.MonitorFailureLimit <= 0 {
		opts.MonitorFailureLimit = defaultMonitorFailureLimit
	}
	return &DownloadService{
		client:  client,
		repo:    repo,
		log:     log,
		opts:    opts,
		cancels: map[string]context.CancelFunc{},
	}
}

// Submit validates and records a new download, then starts processing
// it asynchronously. The returned job is in the pending state.
func (s *DownloadService) Submit(ctx context.Context, req SubmitRequest) (*models.Job, error) {
	parsed, err := url.Parse(req.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, &ValidationError{Field: "url", Reason: "must be an absolute http(s) URL"}
	}
	if req.MediaType == "" {
		req.MediaType = models.MediaVideo
	}
	if !req.MediaType.Valid() {
		return nil, &ValidationError{Field: "mediaType", Reason: "must be video, audio, or both"}
	}
	if req.Quality == "" {
		req.Quality = defaultQuality
	}

	job := &models.Job{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		SourceURL: req.URL,
		Platform:  detectPlatform(req.URL),
		MediaType: req.MediaType,
		Quality:   req.Quality,
		Status:    models.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create download job: %w", err)
	}

	s.launch(job)
	return job, nil
}

// GetStatus returns the best-known state of a job.
func (s *DownloadService) GetStatus(ctx context.Context, id string) (*models.Job, error) {
	return s.repo.GetByID(ctx, id)
}

// ListForUser returns a user's jobs, newest first.
func (s *DownloadService) ListForUser(ctx context.Context, userID string, limit int) ([]models.Job, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.repo.ListByUser(ctx, userID, limit)
}

// Cancel stops a job. Cancellation is cooperative and always accepted
// locally: remote cleanup is best effort and its failures are ignored.
// Cancelling a job already in a terminal state changes nothing.
func (s *DownloadService) Cancel(ctx context.Context, id string) error {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return nil
	}

	s.mu.Lock()
	if cancel, ok := s.cancels[id]; ok {
		cancel()
	}
	s.mu.Unlock()

	if job.RemotePackageID != 0 || len(job.RemoteLinkIDs) > 0 {
		if err := s.client.EnsureConnected(ctx); err != nil {
			s.log.Warn("cancel: remote cleanup skipped", zap.String("job_id", id), zap.Error(err))
		} else {
			var packageIDs []int64
			if job.RemotePackageID != 0 {
				packageIDs = []int64{job.RemotePackageID}
			}
			if err := s.client.RemoveDownloadLinks(ctx, job.RemoteLinkIDs, packageIDs); err != nil {
				s.log.Debug("cancel: remove from downloads failed", zap.String("job_id", id), zap.Error(err))
			}
			if err := s.client.RemoveFromGrabber(ctx, job.RemoteLinkIDs, packageIDs); err != nil {
				s.log.Debug("cancel: remove from grabber failed", zap.String("job_id", id), zap.Error(err))
			}
		}
	}

	return s.repo.Update(ctx, id, models.JobUpdate{Status: ptr(models.StatusCancelled)})
}

// Retry resets a failed or cancelled job to pending and reprocesses it
// as a fresh attempt. Jobs in any other state are rejected.
func (s *DownloadService) Retry(ctx context.Context, id string) (*models.Job, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != models.StatusFailed && job.Status != models.StatusCancelled {
		return nil, ErrNotRetryable
	}

	err = s.repo.Update(ctx, id, models.JobUpdate{
		Status:          ptr(models.StatusPending),
		Progress:        ptr(0),
		SpeedBps:        ptr(int64(0)),
		ETASeconds:      ptr(int64(0)),
		ErrorMessage:    ptr(""),
		RemoteJobID:     ptr(int64(0)),
		RemotePackageID: ptr(int64(0)),
		RemoteLinkIDs:   ptr([]int64{}),
	})
	if err != nil {
		return nil, err
	}

	fresh, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.launch(fresh)
	return fresh, nil
}

// ResumeInterrupted fails every job left in a non-terminal state by a
// previous process, so the store never reports phantom in-flight work.
func (s *DownloadService) ResumeInterrupted(ctx context.Context) error {
	jobs, err := s.repo.ListActive(ctx)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		s.log.Warn("failing job interrupted by restart",
			zap.String("job_id", job.ID), zap.String("status", string(job.Status)))
		if err := s.repo.Update(ctx, job.ID, models.JobUpdate{
			Status:       ptr(models.StatusFailed),
			ErrorMessage: ptr("interrupted by server restart"),
			RetryCount:   ptr(job.RetryCount + 1),
		}); err != nil {
			return err
		}
	}
	return nil
}

// Wait blocks until every in-flight job goroutine has finished. Test
// hook; production shutdown just lets the sweep clean up on next boot.
func (s *DownloadService) Wait() {
	s.wg.Wait()
}

// launch starts the processing goroutine for a job and registers its
// cancellation handle.
func (s *DownloadService) launch(job *models.Job) {
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancels[job.ID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.cancels, job.ID)
			s.mu.Unlock()
			cancel()
		}()

		if err := s.process(ctx, job); err != nil {
			if ctx.Err() != nil {
				// Cancelled: Cancel already set the final status.
				return
			}
			s.fail(job, err)
		}
	}()
}

// process runs one attempt of the full state machine for a job. Every
// error it returns becomes a terminal failed state; it is the single
// place failure policy is decided.
func (s *DownloadService) process(ctx context.Context, job *models.Job) error {
	s.log.Info("processing download job",
		zap.String("job_id", job.ID),
		zap.String("url", job.SourceURL),
		zap.String("platform", job.Platform))

	if err := s.client.EnsureConnected(ctx); err != nil {
		return err
	}

	now := time.Now().UTC()
	s.update(job.ID, models.JobUpdate{Status: ptr(models.StatusCrawling), StartedAt: &now})

	collecting, err := s.client.AddLinks(ctx, jd.AddLinksQuery{
		Links:                    job.SourceURL,
		AssignJobID:              true,
		Autostart:                false,
		AutoExtract:              false,
		DeepDecrypt:              false,
		OverwritePackagizerRules: false,
	})
	if err != nil {
		return err
	}
	s.update(job.ID, models.JobUpdate{RemoteJobID: &collecting.ID})

	if err := s.waitForCrawl(ctx, collecting.ID); err != nil {
		return err
	}

	packages, err := s.client.QueryCrawledPackages(ctx, jd.CrawledPackageQuery{
		BytesTotal: true, ChildCount: true, SaveTo: true,
	})
	if err != nil {
		return err
	}
	links, err := s.client.QueryCrawledLinks(ctx, jd.CrawledLinkQuery{
		BytesTotal: true, Availability: true, Variants: true, URL: true,
	})
	if err != nil {
		return err
	}
	if len(links) == 0 {
		return errors.New("no downloadable links found for this URL")
	}

	pkg := owningPackage(packages, links)
	if pkg != nil {
		// A directory on the remote device; the device default is an
		// acceptable fallback, so a failed write does not abort the job.
		if err := s.client.SetGrabberDownloadDirectory(ctx, s.opts.DownloadPath, []int64{pkg.UUID}); err != nil {
			s.log.Warn("failed to set download directory",
				zap.String("job_id", job.ID), zap.Error(err))
		}
	}

	s.selectVariants(ctx, links, job.Quality, job.MediaType)

	linkIDs := make([]int64, len(links))
	var totalBytes int64
	for i, l := range links {
		linkIDs[i] = l.UUID
		totalBytes += l.BytesTotal
	}

	var packageID int64
	title := links[0].Name
	if pkg != nil {
		packageID = pkg.UUID
		if pkg.Name != "" {
			title = pkg.Name
		}
	}

	s.update(job.ID, models.JobUpdate{
		Status:          ptr(models.StatusReady),
		RemotePackageID: &packageID,
		RemoteLinkIDs:   &linkIDs,
		FileName:        &links[0].Name,
		FileSize:        &totalBytes,
		Title:           &title,
		Host:            &links[0].Host,
		LinkCount:       ptr(len(links)),
		Availability:    &links[0].Availability,
	})

	var packageIDs []int64
	if pkg != nil {
		packageIDs = []int64{pkg.UUID}
	}
	if err := s.client.MoveToDownloadList(ctx, linkIDs, packageIDs); err != nil {
		return err
	}
	if _, err := s.client.StartDownloads(ctx); err != nil {
		return err
	}
	s.update(job.ID, models.JobUpdate{Status: ptr(models.StatusDownloading)})

	return s.monitor(ctx, job.ID, packageID)
}

// waitForCrawl polls the collector until crawling settles. When the
// ceiling elapses first, the crawl is aborted exactly once and the job
// fails with ErrCrawlTimeout; this bounds an otherwise unbounded
// remote crawl.
func (s *DownloadService) waitForCrawl(ctx context.Context, remoteJobID int64) error {
	deadline := time.Now().Add(s.opts.CrawlTimeout)
	ticker := time.NewTicker(s.opts.CrawlInterval)
	defer ticker.Stop()

	for {
		collecting, err := s.client.IsCollecting(ctx)
		if err != nil {
			return err
		}
		if !collecting {
			return nil
		}
		if !time.Now().Before(deadline) {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	if _, err := s.client.AbortCollection(ctx, remoteJobID); err != nil {
		s.log.Warn("failed to abort crawl", zap.Int64("remote_job_id", remoteJobID), zap.Error(err))
	}
	return ErrCrawlTimeout
}

// monitor polls the download list until the package finishes, the job
// is cancelled, or too many consecutive polls fail. When monitoring
// gives up the job stays downloading in the store; that operational
// gap is surfaced as an error-level log.
func (s *DownloadService) monitor(ctx context.Context, jobID string, packageID int64) error {
	ticker := time.NewTicker(s.opts.MonitorInterval)
	defer ticker.Stop()

	failures := 0
	for failures < s.opts.MonitorFailureLimit {
		done, err := s.pollProgress(ctx, jobID, packageID)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failures++
			s.log.Warn("progress poll failed",
				zap.String("job_id", jobID), zap.Int("consecutive", failures), zap.Error(err))
		case done:
			return nil
		default:
			failures = 0
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	s.log.Error("giving up monitoring job after repeated poll failures",
		zap.String("job_id", jobID), zap.Int("failures", failures))
	return nil
}

// pollProgress performs one monitoring pass. It returns done=true once
// the job reached completed.
func (s *DownloadService) pollProgress(ctx context.Context, jobID string, packageID int64) (bool, error) {
	packages, err := s.client.QueryDownloadPackages(ctx, jd.PackageQuery{
		PackageUUIDs: []int64{packageID},
		BytesLoaded:  true, BytesTotal: true, Finished: true,
		Speed: true, ETA: true, Status: true, SaveTo: true,
	})
	if err != nil {
		return false, err
	}
	links, err := s.client.QueryDownloadLinks(ctx, jd.LinkQuery{
		PackageUUIDs: []int64{packageID},
		BytesLoaded:  true, BytesTotal: true, Finished: true,
		Speed: true, ETA: true, Status: true,
	})
	if err != nil {
		return false, err
	}

	if len(packages) == 0 {
		// The device moves finished packages to history; all links
		// reporting finished (or none left) means the download is done.
		for _, l := range links {
			if !l.Finished {
				return false, errors.New("package missing from download list")
			}
		}
		s.complete(jobID, "")
		return true, nil
	}

	pkg := packages[0]
	progress := 0
	if pkg.BytesTotal > 0 {
		progress = int(pkg.BytesLoaded * 100 / pkg.BytesTotal)
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	s.update(jobID, models.JobUpdate{
		Progress:   &progress,
		SpeedBps:   &pkg.Speed,
		ETASeconds: &pkg.ETA,
	})

	if pkg.Finished {
		s.complete(jobID, pkg.SaveTo)
		return true, nil
	}
	return false, nil
}

// complete marks a job finished.
func (s *DownloadService) complete(jobID, savePath string) {
	now := time.Now().UTC()
	upd := models.JobUpdate{
		Status:      ptr(models.StatusCompleted),
		Progress:    ptr(100),
		CompletedAt: &now,
	}
	if savePath != "" {
		upd.FilePath = &savePath
	}
	s.update(jobID, upd)
	s.log.Info("download job completed", zap.String("job_id", jobID), zap.String("path", savePath))
}

// fail marks a job failed, preserving the cause verbatim for callers.
func (s *DownloadService) fail(job *models.Job, cause error) {
	s.log.Error("download job failed", zap.String("job_id", job.ID), zap.Error(cause))
	s.update(job.ID, models.JobUpdate{
		Status:       ptr(models.StatusFailed),
		ErrorMessage: ptr(cause.Error()),
		RetryCount:   ptr(job.RetryCount + 1),
	})
}

// update persists a partial job update outside the job's own context,
// so cancellation cannot lose a final status write.
func (s *DownloadService) update(id string, upd models.JobUpdate) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.repo.Update(ctx, id, upd); err != nil {
		s.log.Error("failed to persist job update", zap.String("job_id", id), zap.Error(err))
	}
}

// owningPackage finds the crawled package the returned links belong to.
func owningPackage(packages []jd.CrawledPackage, links []jd.CrawledLink) *jd.CrawledPackage {
	for i := range packages {
		for _, l := range links {
			if l.PackageUUID == packages[i].UUID {
				return &packages[i]
			}
		}
	}
	return nil
}

func ptr[T any](v T) *T { return &v }

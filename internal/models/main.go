// Package models defines the core data structures for download jobs.
package models

import "time"

// JobStatus identifies the current stage of a download job.
type JobStatus string

const (
	// StatusPending means the job was accepted but processing has not started.
	StatusPending JobStatus = "pending"
	// StatusCrawling means the remote device is analyzing the source URL.
	StatusCrawling JobStatus = "crawling"
	// StatusReady means crawled links were resolved and quality was selected.
	StatusReady JobStatus = "ready"
	// StatusDownloading means the remote device is transferring the files.
	StatusDownloading JobStatus = "downloading"
	// StatusCompleted means all files finished downloading on the device.
	StatusCompleted JobStatus = "completed"
	// StatusFailed means processing stopped with an error.
	StatusFailed JobStatus = "failed"
	// StatusCancelled means the job was cancelled by request.
	StatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether no further processing happens for a job
// in this status. Terminal jobs stay queryable but are never polled.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// MediaType selects which kind of media variants a job should download.
type MediaType string

const (
	// MediaVideo downloads video (possibly with audio muxed in).
	MediaVideo MediaType = "video"
	// MediaAudio downloads an audio-only variant.
	MediaAudio MediaType = "audio"
	// MediaBoth places no restriction on variants.
	MediaBoth MediaType = "both"
)

// Valid reports whether m is one of the recognized media types.
func (m MediaType) Valid() bool {
	return m == MediaVideo || m == MediaAudio || m == MediaBoth
}

// Job is one submitted download, tracked from submission to completion.
// The orchestrator is the only writer; everything else reads.
type Job struct {
	// ID is the unique identifier for the job.
	ID string `json:"id"`
	// UserID is the owning user, empty for anonymous submissions.
	UserID string `json:"userId,omitempty"`
	// SourceURL is the page or media URL the user submitted.
	SourceURL string `json:"sourceUrl"`
	// Platform is the detected source platform tag ("youtube", "vimeo", ...).
	Platform string `json:"sourcePlatform"`
	// MediaType is the requested media kind.
	MediaType MediaType `json:"mediaType"`
	// Quality is the requested quality hint, e.g. "1080p".
	Quality string `json:"preferredQuality"`
	// Status is the current state-machine state.
	Status JobStatus `json:"status"`
	// Progress is the download completion percentage, 0-100.
	Progress int `json:"progress"`
	// SpeedBps is the last observed download speed in bytes per second.
	SpeedBps int64 `json:"speedBps,omitempty"`
	// ETASeconds is the last observed estimated time to completion.
	ETASeconds int64 `json:"etaSeconds,omitempty"`
	// RemoteJobID is the link-collecting job id on the remote device.
	RemoteJobID int64 `json:"remoteJobId,omitempty"`
	// RemotePackageID is the crawled package uuid on the remote device.
	RemotePackageID int64 `json:"remotePackageId,omitempty"`
	// RemoteLinkIDs are the crawled link uuids on the remote device.
	RemoteLinkIDs []int64 `json:"remoteLinkIds,omitempty"`
	// FileName is the primary resolved file name.
	FileName string `json:"fileName,omitempty"`
	// FileSize is the total size in bytes summed over all links.
	FileSize int64 `json:"fileSize,omitempty"`
	// FilePath is the save location reported by the remote device.
	FilePath string `json:"filePath,omitempty"`
	// Title is the resolved package or media title.
	Title string `json:"title,omitempty"`
	// Host is the hoster of the first resolved link.
	Host string `json:"host,omitempty"`
	// LinkCount is the number of crawled links in the package.
	LinkCount int `json:"linkCount,omitempty"`
	// Availability is the online state of the first resolved link.
	Availability string `json:"availability,omitempty"`
	// ErrorMessage holds the failure reason when Status is failed.
	ErrorMessage string `json:"errorMessage,omitempty"`
	// RetryCount is how many attempts have failed so far.
	RetryCount int `json:"retryCount"`
	// CreatedAt is when the job record was created.
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is when the record was last written.
	UpdatedAt time.Time `json:"updatedAt"`
	// StartedAt is when processing first moved past pending, if ever.
	StartedAt *time.Time `json:"startedAt,omitempty"`
	// CompletedAt is when the job reached completed, if ever.
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// JobUpdate is a partial update of a Job record. Nil fields are left
// untouched by the store; non-nil fields overwrite, including zero
// values (which is how error text and remote ids are cleared on retry).
type JobUpdate struct {
	Status          *JobStatus
	Progress        *int
	SpeedBps        *int64
	ETASeconds      *int64
	RemoteJobID     *int64
	RemotePackageID *int64
	RemoteLinkIDs   *[]int64
	FileName        *string
	FileSize        *int64
	FilePath        *string
	Title           *string
	Host            *string
	LinkCount       *int
	Availability    *string
	ErrorMessage    *string
	RetryCount      *int
	StartedAt       *time.Time
	CompletedAt     *time.Time
}

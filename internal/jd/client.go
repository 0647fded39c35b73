package jd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// ListDevices returns all devices currently attached to the session's
// relay account.
func (c *Client) ListDevices(ctx context.Context) ([]Device, error) {
	raw, err := c.callServer(ctx, "/my/listdevices", true, nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		List []Device `json:"list"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("parse device list: %w", err)
	}
	return resp.List, nil
}

// SelectDevice binds one device to the session for subsequent device
// calls. With an empty name the first listed device is taken. Selecting
// a name no device carries is an error, as is an empty device list.
func (c *Client) SelectDevice(ctx context.Context, name string) (*Device, error) {
	devices, err := c.ListDevices(ctx)
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return nil, ErrNoDevices
	}

	selected := &devices[0]
	if name != "" {
		selected = nil
		available := make([]string, 0, len(devices))
		for i := range devices {
			available = append(available, devices[i].Name)
			if devices[i].Name == name {
				selected = &devices[i]
			}
		}
		if selected == nil {
			return nil, fmt.Errorf("device %q not found (available: %s)", name, strings.Join(available, ", "))
		}
	}

	c.mu.Lock()
	c.device = selected
	c.mu.Unlock()

	c.log.Info("selected device", zap.String("name", selected.Name), zap.String("id", selected.ID))
	return selected, nil
}

// EnsureConnected verifies the session with a liveness probe and
// re-authenticates once when the probe fails. Callers that were in
// flight during the re-auth get a fresh session for their retry.
func (c *Client) EnsureConnected(ctx context.Context) error {
	if !c.Connected() {
		return c.connectAndBind(ctx)
	}
	if _, err := c.Ping(ctx); err != nil {
		c.log.Warn("session liveness probe failed, reconnecting", zap.Error(err))
		c.mu.Lock()
		c.session = nil
		c.device = nil
		c.mu.Unlock()

		backoff := retry.WithMaxRetries(1, retry.NewConstant(time.Second))
		return retry.Do(ctx, backoff, func(ctx context.Context) error {
			if err := c.connectAndBind(ctx); err != nil {
				return retry.RetryableError(err)
			}
			return nil
		})
	}
	return nil
}

func (c *Client) connectAndBind(ctx context.Context) error {
	if err := c.Connect(ctx); err != nil {
		return err
	}
	if _, err := c.SelectDevice(ctx, c.deviceName); err != nil {
		return err
	}
	return nil
}

// ---- link collection ----

// AddLinks hands a batch of URLs to the remote link collector and
// returns the crawl job it spawned.
func (c *Client) AddLinks(ctx context.Context, q AddLinksQuery) (*LinkCollectingJob, error) {
	var job LinkCollectingJob
	if err := c.callDevice(ctx, "/linkgrabberv2/addLinks", []any{q}, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// IsCollecting reports whether the link collector is still crawling.
func (c *Client) IsCollecting(ctx context.Context) (bool, error) {
	var collecting bool
	err := c.callDevice(ctx, "/linkgrabberv2/isCollecting", nil, &collecting)
	return collecting, err
}

// AbortCollection stops the crawl job with the given id, or every
// running crawl when id is zero.
func (c *Client) AbortCollection(ctx context.Context, jobID int64) (bool, error) {
	var ok bool
	var params []any
	if jobID != 0 {
		params = []any{jobID}
	}
	err := c.callDevice(ctx, "/linkgrabberv2/abort", params, &ok)
	return ok, err
}

// QueryCrawledLinks lists links sitting in the link collector.
func (c *Client) QueryCrawledLinks(ctx context.Context, q CrawledLinkQuery) ([]CrawledLink, error) {
	var links []CrawledLink
	err := c.callDevice(ctx, "/linkgrabberv2/queryLinks", []any{q}, &links)
	return links, err
}

// QueryCrawledPackages lists packages sitting in the link collector.
func (c *Client) QueryCrawledPackages(ctx context.Context, q CrawledPackageQuery) ([]CrawledPackage, error) {
	var packages []CrawledPackage
	err := c.callDevice(ctx, "/linkgrabberv2/queryPackages", []any{q}, &packages)
	return packages, err
}

// GetVariants lists the quality/format options available for a link.
func (c *Client) GetVariants(ctx context.Context, linkID int64) ([]LinkVariant, error) {
	var variants []LinkVariant
	err := c.callDevice(ctx, "/linkgrabberv2/getVariants", []any{linkID}, &variants)
	return variants, err
}

// SetVariant picks one of a link's variants.
func (c *Client) SetVariant(ctx context.Context, linkID int64, variantID string) error {
	return c.callDevice(ctx, "/linkgrabberv2/setVariant", []any{linkID, variantID}, nil)
}

// SetGrabberDownloadDirectory points crawled packages at a download
// directory on the remote device.
func (c *Client) SetGrabberDownloadDirectory(ctx context.Context, directory string, packageIDs []int64) error {
	return c.callDevice(ctx, "/linkgrabberv2/setDownloadDirectory", []any{directory, packageIDs}, nil)
}

// MoveToDownloadList moves crawled links and packages into the active
// download list.
func (c *Client) MoveToDownloadList(ctx context.Context, linkIDs, packageIDs []int64) error {
	return c.callDevice(ctx, "/linkgrabberv2/moveToDownloadlist", []any{linkIDs, packageIDs}, nil)
}

// ClearGrabber removes everything from the link collector.
func (c *Client) ClearGrabber(ctx context.Context) (bool, error) {
	var ok bool
	err := c.callDevice(ctx, "/linkgrabberv2/clearList", nil, &ok)
	return ok, err
}

// RemoveFromGrabber removes specific links and packages from the link
// collector.
func (c *Client) RemoveFromGrabber(ctx context.Context, linkIDs, packageIDs []int64) error {
	return c.callDevice(ctx, "/linkgrabberv2/removeLinks", []any{linkIDs, packageIDs}, nil)
}

// ---- download control ----

// StartDownloads starts the device's download controller.
func (c *Client) StartDownloads(ctx context.Context) (bool, error) {
	var ok bool
	err := c.callDevice(ctx, "/downloadcontroller/start", nil, &ok)
	return ok, err
}

// StopDownloads stops the device's download controller.
func (c *Client) StopDownloads(ctx context.Context) (bool, error) {
	var ok bool
	err := c.callDevice(ctx, "/downloadcontroller/stop", nil, &ok)
	return ok, err
}

// PauseDownloads pauses or resumes the download controller.
func (c *Client) PauseDownloads(ctx context.Context, pause bool) (bool, error) {
	var ok bool
	err := c.callDevice(ctx, "/downloadcontroller/pause", []any{pause}, &ok)
	return ok, err
}

// GetDownloadState returns the controller state, e.g. "RUNNING".
func (c *Client) GetDownloadState(ctx context.Context) (string, error) {
	var state string
	err := c.callDevice(ctx, "/downloadcontroller/getCurrentState", nil, &state)
	return state, err
}

// GetSpeed returns the aggregate download speed in bytes per second.
func (c *Client) GetSpeed(ctx context.Context) (int64, error) {
	var speed int64
	err := c.callDevice(ctx, "/downloadcontroller/getSpeedInBps", nil, &speed)
	return speed, err
}

// ForceDownload forces specific links to download immediately.
func (c *Client) ForceDownload(ctx context.Context, linkIDs, packageIDs []int64) (bool, error) {
	var ok bool
	err := c.callDevice(ctx, "/downloadsV2/forceDownload", []any{linkIDs, packageIDs}, &ok)
	return ok, err
}

// ---- download queries ----

// QueryDownloadLinks lists links in the active download list.
func (c *Client) QueryDownloadLinks(ctx context.Context, q LinkQuery) ([]DownloadLink, error) {
	var links []DownloadLink
	err := c.callDevice(ctx, "/downloadsV2/queryLinks", []any{q}, &links)
	return links, err
}

// QueryDownloadPackages lists packages in the active download list.
func (c *Client) QueryDownloadPackages(ctx context.Context, q PackageQuery) ([]FilePackage, error) {
	var packages []FilePackage
	err := c.callDevice(ctx, "/downloadsV2/queryPackages", []any{q}, &packages)
	return packages, err
}

// PackageCount returns the number of packages in the download list.
func (c *Client) PackageCount(ctx context.Context) (int, error) {
	var count int
	err := c.callDevice(ctx, "/downloadsV2/packageCount", nil, &count)
	return count, err
}

// RemoveDownloadLinks removes links and packages from the download
// list.
func (c *Client) RemoveDownloadLinks(ctx context.Context, linkIDs, packageIDs []int64) error {
	return c.callDevice(ctx, "/downloadsV2/removeLinks", []any{linkIDs, packageIDs}, nil)
}

// SetDownloadDirectory changes the download directory of packages
// already in the download list.
func (c *Client) SetDownloadDirectory(ctx context.Context, directory string, packageIDs []int64) error {
	return c.callDevice(ctx, "/downloadsV2/setDownloadDirectory", []any{directory, packageIDs}, nil)
}

// RenameLink renames a link in the download list.
func (c *Client) RenameLink(ctx context.Context, linkID int64, newName string) error {
	return c.callDevice(ctx, "/downloadsV2/renameLink", []any{linkID, newName}, nil)
}

// RenamePackage renames a package in the download list.
func (c *Client) RenamePackage(ctx context.Context, packageID int64, newName string) error {
	return c.callDevice(ctx, "/downloadsV2/renamePackage", []any{packageID, newName}, nil)
}

// ---- system ----

// Version returns the device application version.
func (c *Client) Version(ctx context.Context) (int64, error) {
	var version int64
	err := c.callDevice(ctx, "/jd/version", nil, &version)
	return version, err
}

// Uptime returns the device uptime in milliseconds.
func (c *Client) Uptime(ctx context.Context) (int64, error) {
	var uptime int64
	err := c.callDevice(ctx, "/jd/uptime", nil, &uptime)
	return uptime, err
}

// Ping probes the device for liveness.
func (c *Client) Ping(ctx context.Context) (bool, error) {
	var ok bool
	err := c.callDevice(ctx, "/device/ping", nil, &ok)
	return ok, err
}

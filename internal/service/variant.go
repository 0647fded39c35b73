package service

import (
	"context"
	"strings"

	"github.com/ZyrticX/MP4/internal/jd"
	"github.com/ZyrticX/MP4/internal/models"
	"go.uber.org/zap"
)

// qualityOrder ranks the recognized quality hints best first. An
// unrecognized hint resolves to the default position, 1080p.
var qualityOrder = []string{"2160p", "1440p", "1080p", "720p", "480p", "360p", "240p"}

const defaultQualityIndex = 2

// selectVariants resolves the requested quality against each link's
// advertised variants. Selection is best effort: a link left on its
// device-chosen default is preferable to failing the whole job.
func (s *DownloadService) selectVariants(ctx context.Context, links []jd.CrawledLink, quality string, mediaType models.MediaType) {
	for _, link := range links {
		if !link.Variants {
			continue
		}
		variants, err := s.client.GetVariants(ctx, link.UUID)
		if err != nil {
			s.log.Warn("failed to fetch link variants",
				zap.Int64("link_uuid", link.UUID), zap.Error(err))
			continue
		}
		chosen := chooseVariant(variants, quality, mediaType)
		if chosen == nil {
			continue
		}
		if err := s.client.SetVariant(ctx, link.UUID, chosen.ID); err != nil {
			s.log.Warn("failed to set link variant",
				zap.Int64("link_uuid", link.UUID), zap.String("variant", chosen.ID), zap.Error(err))
		}
	}
}

// chooseVariant picks the best variant for a quality hint and media
// type. It filters by media type first, then walks the quality ladder
// from the requested rung downward looking for a variant whose name
// mentions the rung. Nothing matching falls back to the first filtered
// variant, then to the first variant overall. Returns nil only when
// variants is empty.
func chooseVariant(variants []jd.LinkVariant, quality string, mediaType models.MediaType) *jd.LinkVariant {
	if len(variants) == 0 {
		return nil
	}

	filtered := filterByMediaType(variants, mediaType)
	pool := filtered
	if len(pool) == 0 {
		pool = variants
	}

	start := defaultQualityIndex
	for i, q := range qualityOrder {
		if strings.EqualFold(q, quality) {
			start = i
			break
		}
	}
	for i := start; i < len(qualityOrder); i++ {
		for j := range pool {
			if strings.Contains(strings.ToLower(pool[j].Name), qualityOrder[i]) {
				return &pool[j]
			}
		}
	}

	return &pool[0]
}

// filterByMediaType keeps the variants matching the requested media
// type. Audio wants audio-only renditions; video excludes them; both
// keeps everything.
func filterByMediaType(variants []jd.LinkVariant, mediaType models.MediaType) []jd.LinkVariant {
	switch mediaType {
	case models.MediaAudio:
		var out []jd.LinkVariant
		for _, v := range variants {
			name := strings.ToLower(v.Name)
			if strings.Contains(name, "audio") || strings.Contains(name, "m4a") || strings.Contains(name, "mp3") {
				out = append(out, v)
			}
		}
		return out
	case models.MediaVideo:
		var out []jd.LinkVariant
		for _, v := range variants {
			if strings.Contains(strings.ToLower(v.Name), "audio only") {
				continue
			}
			out = append(out, v)
		}
		return out
	default:
		return variants
	}
}

// detectPlatform classifies a source URL by hostname substring. The
// label is informational only and never gates behavior.
func detectPlatform(rawURL string) string {
	u := strings.ToLower(rawURL)
	switch {
	case strings.Contains(u, "youtube") || strings.Contains(u, "youtu.be"):
		return "youtube"
	case strings.Contains(u, "facebook") || strings.Contains(u, "fb.watch"):
		return "facebook"
	case strings.Contains(u, "vimeo"):
		return "vimeo"
	case strings.Contains(u, "tiktok"):
		return "tiktok"
	case strings.Contains(u, "instagram"):
		return "instagram"
	case strings.Contains(u, "twitter") || strings.Contains(u, "x.com"):
		return "twitter"
	case strings.Contains(u, "twitch.tv"):
		return "twitch"
	case strings.Contains(u, "dailymotion"):
		return "dailymotion"
	default:
		return "other"
	}
}

// Package source resolves input URLs into stable pipeline sources.
package source

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/bdougie/slidegrab/internal/models"
)

var (
	youtubeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	slugStripPattern = regexp.MustCompile(`[^a-z0-9]+`)
	extPattern       = regexp.MustCompile(`\.[a-zA-Z0-9]+$`)
)

var directMediaExtensions = map[string]bool{
	".mp4": true, ".mkv": true, ".webm": true, ".mov": true,
	".avi": true, ".m4v": true, ".mpg": true, ".mpeg": true, ".ts": true,
}

// Resolve classifies a URL as a remote-hosted or direct-file video source.
// The sourceId is immutable once computed: the YouTube video ID, or a
// slug+hash for direct files.
func Resolve(raw string) (models.Source, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.Source{}, fmt.Errorf("empty source url")
	}
	if id := ExtractYouTubeID(raw); id != "" {
		return models.Source{
			URL:      "https://www.youtube.com/watch?v=" + id,
			Kind:     models.SourceYouTube,
			SourceID: id,
		}, nil
	}
	if IsDirectMediaURL(raw) {
		return models.Source{
			URL:      raw,
			Kind:     models.SourceDirect,
			SourceID: DirectSourceID(raw),
		}, nil
	}
	return models.Source{}, fmt.Errorf("unsupported video source: %s", raw)
}

// ExtractYouTubeID pulls the 11-character video ID out of watch, share,
// shorts, embed and live URL forms. Returns "" when the URL is not a
// recognizable YouTube video.
func ExtractYouTubeID(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	switch host {
	case "youtu.be":
		return validID(strings.TrimPrefix(u.Path, "/"))
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		if id := validID(u.Query().Get("v")); id != "" {
			return id
		}
		for _, prefix := range []string{"/shorts/", "/embed/", "/live/"} {
			if strings.HasPrefix(u.Path, prefix) {
				rest := strings.TrimPrefix(u.Path, prefix)
				if i := strings.IndexByte(rest, '/'); i >= 0 {
					rest = rest[:i]
				}
				return validID(rest)
			}
		}
	}
	return ""
}

func validID(candidate string) string {
	if youtubeIDPattern.MatchString(candidate) {
		return candidate
	}
	return ""
}

// IsDirectMediaURL reports whether the URL points at a file ffmpeg can read
// without a downloader, judged by its extension.
func IsDirectMediaURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "file" && u.Scheme != "" {
		return false
	}
	return directMediaExtensions[strings.ToLower(path.Ext(u.Path))]
}

// DirectSourceID derives a filesystem-safe, collision-resistant directory
// name from a direct URL: a lowercased slug of the file name plus the first
// 8 hex chars of the URL's sha1.
func DirectSourceID(raw string) string {
	base := "video"
	if u, err := url.Parse(raw); err == nil {
		if name := path.Base(u.Path); name != "" && name != "/" && name != "." {
			base = name
		}
	}
	base = extPattern.ReplaceAllString(base, "")
	slug := strings.Trim(slugStripPattern.ReplaceAllString(strings.ToLower(base), "-"), "-")

	sum := sha1.Sum([]byte(raw))
	hash := hex.EncodeToString(sum[:])[:8]
	if slug == "" {
		return "video-" + hash
	}
	return slug + "-" + hash
}

package source

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bdougie/slidegrab/internal/models"
)

func TestResolveYouTubeForms(t *testing.T) {
	urls := []string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://youtube.com/watch?v=dQw4w9WgXcQ&t=42s",
		"https://youtu.be/dQw4w9WgXcQ",
		"https://www.youtube.com/shorts/dQw4w9WgXcQ",
		"https://www.youtube.com/embed/dQw4w9WgXcQ",
		"https://www.youtube.com/live/dQw4w9WgXcQ",
		"https://m.youtube.com/watch?v=dQw4w9WgXcQ",
	}
	for _, raw := range urls {
		src, err := Resolve(raw)
		require.NoError(t, err, raw)
		require.Equal(t, models.SourceYouTube, src.Kind)
		require.Equal(t, "dQw4w9WgXcQ", src.SourceID)
		require.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", src.URL)
	}
}

func TestResolveDirectMedia(t *testing.T) {
	src, err := Resolve("https://cdn.example.com/talks/Keynote-2024.mp4")
	require.NoError(t, err)
	require.Equal(t, models.SourceDirect, src.Kind)
	require.Equal(t, "https://cdn.example.com/talks/Keynote-2024.mp4", src.URL)
	require.Regexp(t, `^keynote-2024-[0-9a-f]{8}$`, src.SourceID)
}

func TestResolveRejectsUnknownSources(t *testing.T) {
	for _, raw := range []string{
		"",
		"https://example.com/page.html",
		"https://www.youtube.com/watch?v=tooshort",
		"https://vimeo.com/123456",
	} {
		_, err := Resolve(raw)
		require.Error(t, err, raw)
	}
}

func TestExtractYouTubeIDInvalid(t *testing.T) {
	require.Empty(t, ExtractYouTubeID("https://youtu.be/short"))
	require.Empty(t, ExtractYouTubeID("not a url"))
	require.Empty(t, ExtractYouTubeID("https://www.youtube.com/feed/subscriptions"))
}

func TestDirectSourceIDIsStable(t *testing.T) {
	a := DirectSourceID("https://cdn.example.com/a/lecture.mp4")
	b := DirectSourceID("https://cdn.example.com/a/lecture.mp4")
	require.Equal(t, a, b)

	// Same file name elsewhere must not collide.
	c := DirectSourceID("https://cdn.example.com/b/lecture.mp4")
	require.NotEqual(t, a, c)
}

func TestDirectSourceIDSlugFallback(t *testing.T) {
	require.Regexp(t, `^video-[0-9a-f]{8}$`, DirectSourceID("https://cdn.example.com/%2F%2F.mp4"))
}

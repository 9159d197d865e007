package roi

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bdougie/slidegrab/internal/models"
)

func TestParsePlainJSON(t *testing.T) {
	r, ok := Parse(`{"x": 0.1, "y": 0.05, "width": 0.8, "height": 0.85}`)
	require.True(t, ok)
	require.InDelta(t, 0.1, r.X, 1e-9)
	require.InDelta(t, 0.05, r.Y, 1e-9)
	require.InDelta(t, 0.8, r.Width, 1e-9)
	require.InDelta(t, 0.85, r.Height, 1e-9)
}

func TestParseWrappedInProse(t *testing.T) {
	text := "Sure! The slide content occupies this region:\n" +
		"```json\n{\"x\": 0.2, \"y\": 0.1, \"width\": 0.6, \"height\": 0.7}\n```\nHope that helps."
	r, ok := Parse(text)
	require.True(t, ok)
	require.InDelta(t, 0.2, r.X, 1e-9)
	require.InDelta(t, 0.6, r.Width, 1e-9)
}

func TestParseAliasesAndPercentages(t *testing.T) {
	r, ok := Parse(`{"left": 10, "top": 5, "w": "80", "h": 70}`)
	require.True(t, ok)
	require.InDelta(t, 0.10, r.X, 1e-9)
	require.InDelta(t, 0.05, r.Y, 1e-9)
	require.InDelta(t, 0.80, r.Width, 1e-9)
	require.InDelta(t, 0.70, r.Height, 1e-9)
}

func TestParseRightBottomDerivation(t *testing.T) {
	r, ok := Parse(`{"left": 0.1, "top": 0.1, "right": 0.9, "bottom": 0.8}`)
	require.True(t, ok)
	require.InDelta(t, 0.8, r.Width, 1e-9)
	require.InDelta(t, 0.7, r.Height, 1e-9)
}

func TestParseRejections(t *testing.T) {
	cases := map[string]string{
		"null answer":       "null",
		"empty":             "  ",
		"no json object":    "there is no slide region visible",
		"missing height":    `{"x": 0.1, "y": 0.1, "width": 0.5}`,
		"zero width":        `{"x": 0.1, "y": 0.1, "width": 0, "height": 0.5}`,
		"tiny region":       `{"x": 0.4, "y": 0.4, "width": 0.1, "height": 0.1}`,
		"non-numeric value": `{"x": "left-ish", "y": 0.1, "width": 0.5, "height": 0.5}`,
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, ok := Parse(text)
			require.False(t, ok)
		})
	}
}

func TestMergeSingleton(t *testing.T) {
	in := models.Roi{X: 0.1, Y: 0.2, Width: 0.5, Height: 0.6}
	out, ok := Merge([]models.Roi{in})
	require.True(t, ok)
	require.Equal(t, in, out)
}

func TestMergeTakesMedianPerCoordinate(t *testing.T) {
	out, ok := Merge([]models.Roi{
		{X: 0.10, Y: 0.10, Width: 0.80, Height: 0.80},
		{X: 0.12, Y: 0.90, Width: 0.78, Height: 0.82}, // bad Y from one frame
		{X: 0.11, Y: 0.09, Width: 0.79, Height: 0.81},
	})
	require.True(t, ok)
	require.InDelta(t, 0.11, out.X, 1e-9)
	require.InDelta(t, 0.10, out.Y, 1e-9) // outlier does not win
	require.InDelta(t, 0.79, out.Width, 1e-9)
	require.InDelta(t, 0.81, out.Height, 1e-9)
}

func TestMergeEmpty(t *testing.T) {
	_, ok := Merge(nil)
	require.False(t, ok)
}

func TestCropFromRoi(t *testing.T) {
	crop, ok := CropFromRoi(models.Roi{X: 0.1, Y: 0.1, Width: 0.8, Height: 0.8}, 1280, 720)
	require.True(t, ok)
	require.Equal(t, models.CropRect{X: 128, Y: 72, Width: 1024, Height: 576}, crop)
}

func TestCropFromRoiClampsToFrame(t *testing.T) {
	crop, ok := CropFromRoi(models.Roi{X: 0.5, Y: 0.5, Width: 0.9, Height: 0.9}, 1000, 500)
	require.True(t, ok)
	require.LessOrEqual(t, crop.X+crop.Width, 1000)
	require.LessOrEqual(t, crop.Y+crop.Height, 500)
}

func TestCropFromRoiRejectsTinyOrUnknownFrames(t *testing.T) {
	_, ok := CropFromRoi(models.Roi{X: 0, Y: 0, Width: 0.5, Height: 0.5}, 0, 0)
	require.False(t, ok)

	// 0.5 of a 20px frame is a 10px crop, under the 16px minimum.
	_, ok = CropFromRoi(models.Roi{X: 0, Y: 0, Width: 0.5, Height: 0.5}, 20, 20)
	require.False(t, ok)
}

func TestSampleTimestamps(t *testing.T) {
	ts := SampleTimestamps(100)
	require.Equal(t, []float64{12, 50, 85}, ts)

	require.Equal(t, []float64{0}, SampleTimestamps(0))

	// Samples stay strictly inside the clip.
	short := SampleTimestamps(0.5)
	for _, v := range short {
		require.LessOrEqual(t, v, 0.4)
	}
}

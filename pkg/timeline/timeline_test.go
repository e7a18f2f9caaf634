package timeline

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postcardgo/pkg/model"
)

func testParams() Params {
	return Params{SecondsPerImage: 5, MaxDuration: 60, Transition: 0.5}
}

func imagePaths(n int) []string {
	paths := make([]string, n)
	for i := range paths {
		paths[i] = fmt.Sprintf("/tmp/img_%d.jpg", i)
	}
	return paths
}

func lastSegmentEnd(tl *model.Timeline) float64 {
	last := tl.Segments[len(tl.Segments)-1]
	return last.StartOffset + last.Duration
}

func TestCompute_SegmentCountAndCap(t *testing.T) {
	for n := 1; n <= 6; n++ {
		t.Run(fmt.Sprintf("%d_images", n), func(t *testing.T) {
			tl, err := Compute(imagePaths(n), 12.0, testParams())
			require.NoError(t, err)
			assert.Len(t, tl.Segments, n)
			assert.LessOrEqual(t, tl.TotalDuration, 60.0)
		})
	}
}

func TestCompute_NoOffsetDrift(t *testing.T) {
	// The final segment must end exactly on the total duration regardless of
	// how many cross-fades were chained in between.
	for n := 2; n <= 6; n++ {
		tl, err := Compute(imagePaths(n), 37.5, testParams())
		require.NoError(t, err)
		assert.InDelta(t, tl.TotalDuration, lastSegmentEnd(tl), 1e-9, "n=%d", n)
	}
}

func TestCompute_OffsetsAccumulateWithOverlap(t *testing.T) {
	tl, err := Compute(imagePaths(3), 0, testParams())
	require.NoError(t, err)

	for i := 1; i < len(tl.Segments); i++ {
		prev := tl.Segments[i-1]
		expected := prev.StartOffset + prev.Duration - tl.TransitionDuration
		assert.InDelta(t, expected, tl.Segments[i].StartOffset, 1e-9)
	}
}

func TestCompute_AudioDrivenDuration(t *testing.T) {
	tl, err := Compute(imagePaths(3), 12.0, testParams())
	require.NoError(t, err)

	assert.True(t, tl.HasAudio)
	assert.InDelta(t, 12.0, tl.TotalDuration, 1e-9)
	assert.InDelta(t, 12.0, lastSegmentEnd(tl), 1e-9)
}

func TestCompute_SilentFallsBackToFixedBudget(t *testing.T) {
	tl, err := Compute(imagePaths(3), 0, testParams())
	require.NoError(t, err)

	assert.False(t, tl.HasAudio)
	assert.InDelta(t, 15.0, tl.TotalDuration, 1e-9)
}

func TestCompute_HardCapBinds(t *testing.T) {
	p := testParams()
	p.SecondsPerImage = 12 // 6 images would want 72s

	tl, err := Compute(imagePaths(6), 0, p)
	require.NoError(t, err)
	assert.InDelta(t, 60.0, tl.TotalDuration, 1e-9)
	assert.InDelta(t, 60.0, lastSegmentEnd(tl), 1e-9)
}

func TestCompute_SingleImageHasNoTransition(t *testing.T) {
	tl, err := Compute(imagePaths(1), 0, testParams())
	require.NoError(t, err)

	require.Len(t, tl.Segments, 1)
	assert.Zero(t, tl.TransitionDuration)
	assert.InDelta(t, 5.0, tl.Segments[0].Duration, 1e-9)
	assert.Zero(t, tl.Segments[0].StartOffset)
}

func TestCompute_AlternatingZoom(t *testing.T) {
	tl, err := Compute(imagePaths(4), 0, testParams())
	require.NoError(t, err)

	for i, seg := range tl.Segments {
		want := model.ZoomIn
		if i%2 == 1 {
			want = model.ZoomOut
		}
		assert.Equal(t, want, seg.Zoom, "segment %d", i)
	}
}

func TestCompute_ZeroImagesFails(t *testing.T) {
	_, err := Compute(nil, 10, testParams())
	require.ErrorIs(t, err, ErrNoAssets)
}

func TestCompute_TinyAudioDropsTransitions(t *testing.T) {
	// Per-image time shorter than a fade: transitions must be dropped rather
	// than producing all-fade segments.
	tl, err := Compute(imagePaths(6), 0.4, testParams())
	require.NoError(t, err)

	assert.Zero(t, tl.TransitionDuration)
	assert.False(t, math.IsNaN(tl.Segments[0].Duration))
	assert.InDelta(t, 0.4, lastSegmentEnd(tl), 1e-9)
}

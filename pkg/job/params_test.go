package job

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDefaults() Defaults {
	return Defaults{
		ViewportWidth:  1280,
		ViewportHeight: 720,
		ImageType:      "png",
		Quality:        80,
		WaitUntil:      "load",
		TimeoutMs:      30000,
	}
}

func validParams() ScreenshotParams {
	p := ScreenshotParams{HTML: "<p>hi</p>"}
	p.ApplyDefaults(testDefaults())
	return p
}

func TestApplyDefaultsFillsEverything(t *testing.T) {
	p := ScreenshotParams{HTML: "<p>hi</p>"}
	p.ApplyDefaults(testDefaults())

	require.NotNil(t, p.Viewport)
	require.NotNil(t, p.Viewport.Width)
	assert.Equal(t, 1280, *p.Viewport.Width)
	require.NotNil(t, p.Viewport.Height)
	assert.Equal(t, 720, *p.Viewport.Height)
	assert.Equal(t, "load", p.WaitUntil)
	require.NotNil(t, p.TimeoutMs)
	assert.Equal(t, 30000, *p.TimeoutMs)
	assert.Equal(t, "png", p.ImageType)
	require.NotNil(t, p.Quality)
	assert.Equal(t, 80, *p.Quality)
	require.NotNil(t, p.Scale)
	assert.Equal(t, 1.0, *p.Scale)
	assert.Equal(t, "base64", p.Encoding)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	timeout := 1000
	quality := 50
	scale := 2.0
	width := 640
	height := 480

	p := ScreenshotParams{
		HTML:      "<p>hi</p>",
		Viewport:  &Viewport{Width: &width, Height: &height},
		WaitUntil: "networkidle",
		TimeoutMs: &timeout,
		ImageType: "jpeg",
		Quality:   &quality,
		Scale:     &scale,
		Encoding:  "binary",
	}
	p.ApplyDefaults(testDefaults())

	assert.Equal(t, 640, *p.Viewport.Width)
	assert.Equal(t, "networkidle", p.WaitUntil)
	assert.Equal(t, 1000, *p.TimeoutMs)
	assert.Equal(t, "jpeg", p.ImageType)
	assert.Equal(t, 50, *p.Quality)
	assert.Equal(t, 2.0, *p.Scale)
	assert.Equal(t, "binary", p.Encoding)
}

func TestValidateValid(t *testing.T) {
	p := validParams()
	assert.Empty(t, p.Validate())
}

func TestValidateMissingHTML(t *testing.T) {
	p := ScreenshotParams{}
	p.ApplyDefaults(testDefaults())

	details := p.Validate()
	require.NotEmpty(t, details)
	assert.True(t, strings.HasPrefix(details[0], "html:"), "expected html detail, got %q", details[0])
}

func TestValidateBlankHTML(t *testing.T) {
	p := ScreenshotParams{HTML: "   \n\t"}
	p.ApplyDefaults(testDefaults())

	details := p.Validate()
	require.NotEmpty(t, details)
	assert.Contains(t, details[0], "html:")
}

func TestValidateViewportBounds(t *testing.T) {
	p := validParams()
	width := 99999
	p.Viewport.Width = &width

	details := p.Validate()
	require.Len(t, details, 1)
	assert.True(t, strings.HasPrefix(details[0], "viewport.width:"))
}

func TestValidateExplicitZeroViewport(t *testing.T) {
	raw := `{"html":"<p>x</p>","viewport":{"width":0,"height":600}}`

	var p ScreenshotParams
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	p.ApplyDefaults(testDefaults())

	// The explicit zero is kept, not replaced by the default width.
	require.NotNil(t, p.Viewport.Width)
	assert.Equal(t, 0, *p.Viewport.Width)

	details := p.Validate()
	require.Len(t, details, 1)
	assert.True(t, strings.HasPrefix(details[0], "viewport.width:"), "got %q", details[0])
}

func TestValidateClip(t *testing.T) {
	p := validParams()
	p.Clip = &ClipRegion{X: -1, Y: 0, Width: 0, Height: 10}

	details := p.Validate()

	joined := strings.Join(details, "\n")
	assert.Contains(t, joined, "clip.x:")
	assert.Contains(t, joined, "clip.width:")
	assert.NotContains(t, joined, "clip.y:")
	assert.NotContains(t, joined, "clip.height:")
}

func TestValidateEnums(t *testing.T) {
	p := validParams()
	p.WaitUntil = "eventually"
	p.ImageType = "gif"
	p.Encoding = "hex"

	joined := strings.Join(p.Validate(), "\n")
	assert.Contains(t, joined, "wait_until:")
	assert.Contains(t, joined, "image_type:")
	assert.Contains(t, joined, "encoding:")
}

func TestValidateRanges(t *testing.T) {
	p := validParams()

	badTimeout := 240000
	badQuality := 0
	badScale := 9.0
	p.TimeoutMs = &badTimeout
	p.Quality = &badQuality
	p.Scale = &badScale

	joined := strings.Join(p.Validate(), "\n")
	assert.Contains(t, joined, "timeout_ms:")
	assert.Contains(t, joined, "quality:")
	assert.Contains(t, joined, "scale:")
}

func TestValidateDetailsSorted(t *testing.T) {
	p := ScreenshotParams{}
	p.ApplyDefaults(testDefaults())
	width := 99999
	p.Viewport.Width = &width
	p.WaitUntil = "nope"

	details := p.Validate()
	require.True(t, len(details) >= 2)
	for i := 1; i < len(details); i++ {
		assert.LessOrEqual(t, details[i-1], details[i])
	}
}

func TestParamsJSONRoundTrip(t *testing.T) {
	raw := `{"html":"<p>x</p>","selector":"#a","clip":{"x":1,"y":2,"width":3,"height":4},"timeout_ms":0,"scale":0.5}`

	var p ScreenshotParams
	require.NoError(t, json.Unmarshal([]byte(raw), &p))

	// An explicit zero survives as distinct from an absent field.
	require.NotNil(t, p.TimeoutMs)
	assert.Equal(t, 0, *p.TimeoutMs)
	require.NotNil(t, p.Scale)
	assert.Equal(t, 0.5, *p.Scale)
	assert.Nil(t, p.Quality)

	p.ApplyDefaults(testDefaults())
	assert.Equal(t, 0, *p.TimeoutMs)
	assert.Empty(t, p.Validate())
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.True(t, StatusSuccess.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestNewPending(t *testing.T) {
	record := NewPending("job-1")

	assert.Equal(t, "job-1", record.JobID)
	assert.Equal(t, StatusPending, record.Status)
	assert.Nil(t, record.Result)
	assert.NotZero(t, record.CreatedAt)
	assert.Equal(t, record.CreatedAt, record.UpdatedAt)
}

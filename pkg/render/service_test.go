package render

import (
	"context"
	goerrors "errors"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shotbox/shotbox/pkg/errors"
	"github.com/shotbox/shotbox/pkg/job"
)

// newTestService starts a real headless browser, skipping when no chromium
// binary is installed on the host.
func newTestService(t *testing.T) *Service {
	t.Helper()

	if _, has := launcher.LookPath(); !has {
		t.Skip("no chromium binary available")
	}

	svc := New(Config{
		BrowserType:     "chromium",
		Headless:        true,
		MaxConcurrent:   2,
		SelectorTimeout: 2 * time.Second,
	})

	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(func() { _ = svc.Stop() })

	return svc
}

func renderParams(html string) job.ScreenshotParams {
	p := job.ScreenshotParams{HTML: html}
	p.ApplyDefaults(job.Defaults{
		ViewportWidth:  1280,
		ViewportHeight: 720,
		ImageType:      "png",
		Quality:        80,
		WaitUntil:      "load",
		TimeoutMs:      30000,
	})
	return p
}

func TestScreenshotNotStarted(t *testing.T) {
	svc := New(Config{BrowserType: "chromium"})

	_, err := svc.Screenshot(context.Background(), renderParams("<p>hi</p>"))
	require.Error(t, err)

	var se *errors.ServiceError
	require.True(t, goerrors.As(err, &se))
	assert.Equal(t, errors.CodeBrowserError, se.Code)
	assert.Equal(t, "browser not started", se.Message)
}

func TestStartRejectsNonChromium(t *testing.T) {
	svc := New(Config{BrowserType: "firefox"})

	err := svc.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "firefox")
}

func TestScreenshotViewport(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.Screenshot(context.Background(), renderParams("<h1>Hello</h1>"))
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotNil(t, result.Image)

	assert.Equal(t, "png", result.ImageType)
	assert.Equal(t, 1280, result.Width)
	assert.Equal(t, 720, result.Height)
	assert.Greater(t, result.SizeBytes, 0)
}

func TestScreenshotElement(t *testing.T) {
	svc := newTestService(t)

	params := renderParams(`<div id="box" style="width:200px;height:200px;background:red"></div>`)
	params.Selector = "#box"

	result, err := svc.Screenshot(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, 200, result.Width)
	assert.Equal(t, 200, result.Height)
}

func TestScreenshotClipWinsOverSelector(t *testing.T) {
	svc := newTestService(t)

	params := renderParams(`<div id="box" style="width:200px;height:200px;background:red"></div>`)
	params.Selector = "#box"
	params.Clip = &job.ClipRegion{X: 0, Y: 0, Width: 100, Height: 100}

	result, err := svc.Screenshot(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, 100, result.Width)
	assert.Equal(t, 100, result.Height)
}

func TestScreenshotSelectorNotFound(t *testing.T) {
	svc := newTestService(t)

	params := renderParams("<p>hi</p>")
	params.Selector = "#missing"

	_, err := svc.Screenshot(context.Background(), params)
	require.Error(t, err)

	var se *errors.ServiceError
	require.True(t, goerrors.As(err, &se))
	assert.Equal(t, errors.CodeSelectorNotFound, se.Code)
	assert.Contains(t, se.Message, "#missing")
}

func TestScreenshotWaitForSelectorTimesOut(t *testing.T) {
	svc := newTestService(t)

	params := renderParams("<p>hi</p>")
	params.WaitForSelector = "#never-appears"

	_, err := svc.Screenshot(context.Background(), params)
	require.Error(t, err)

	var se *errors.ServiceError
	require.True(t, goerrors.As(err, &se))
	assert.Equal(t, errors.CodeSelectorNotFound, se.Code)
}

func TestScreenshotScriptsDisabled(t *testing.T) {
	svc := newTestService(t)

	// The script would remove #box; with execution disabled the element
	// still renders and the capture succeeds.
	params := renderParams(`<div id="box" style="width:50px;height:50px"></div>` +
		`<script>document.getElementById("box").remove()</script>`)
	params.Selector = "#box"

	result, err := svc.Screenshot(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, 50, result.Width)
}

func TestScreenshotJPEG(t *testing.T) {
	svc := newTestService(t)

	params := renderParams("<h1>Hello</h1>")
	params.ImageType = "jpeg"
	quality := 50
	params.Quality = &quality

	result, err := svc.Screenshot(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", result.ImageType)
	assert.Equal(t, 1280, result.Width)
	assert.Equal(t, 720, result.Height)
}

func TestScreenshotStyleOverrides(t *testing.T) {
	svc := newTestService(t)

	params := renderParams(`<div id="box"></div>`)
	params.StyleOverrides = "#box { width: 120px; height: 80px; }"
	params.Selector = "#box"

	result, err := svc.Screenshot(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, 120, result.Width)
	assert.Equal(t, 80, result.Height)
}

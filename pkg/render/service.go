// Package render owns the worker-side browser engine: one headless browser
// per process, one isolated incognito context per request, bounded by a
// counting semaphore.
package render

import (
	"context"
	"encoding/base64"
	goerrors "errors"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/sync/semaphore"

	"github.com/shotbox/shotbox/pkg/errors"
	"github.com/shotbox/shotbox/pkg/imagemeta"
	"github.com/shotbox/shotbox/pkg/job"
)

// Config selects the browser and bounds the per-process render concurrency.
type Config struct {
	BrowserType     string
	Headless        bool
	MaxConcurrent   int
	SelectorTimeout time.Duration
}

// Service drives the browser. Start must succeed before Screenshot is
// called; Stop releases the browser process.
type Service struct {
	cfg     Config
	launch  *launcher.Launcher
	browser *rod.Browser
	sem     *semaphore.Weighted
}

func New(cfg Config) *Service {
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.SelectorTimeout <= 0 {
		cfg.SelectorTimeout = 5 * time.Second
	}

	return &Service{
		cfg: cfg,
		sem: semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
	}
}

// Start launches the browser engine. Only chromium is supported: rod speaks
// CDP, and firefox/webkit configs are rejected here rather than failing
// obscurely mid-render.
func (s *Service) Start(ctx context.Context) error {
	if s.cfg.BrowserType != "chromium" {
		return fmt.Errorf("render: unsupported browser type %q (only chromium is driven over CDP)", s.cfg.BrowserType)
	}

	log.Info("starting browser", "browser", s.cfg.BrowserType, "headless", s.cfg.Headless)

	s.launch = launcher.New().Headless(s.cfg.Headless).Leakless(true)

	wsURL, err := s.launch.Launch()
	if err != nil {
		return fmt.Errorf("render: launch browser: %w", err)
	}

	browser := rod.New().ControlURL(wsURL)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("render: connect browser: %w", err)
	}

	s.browser = browser
	log.Info("browser started")
	return nil
}

// Stop closes the browser and kills the launched process.
func (s *Service) Stop() error {
	var err error

	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	if s.launch != nil {
		s.launch.Kill()
		s.launch = nil
	}

	log.Info("browser stopped")
	return err
}

// Screenshot renders params.HTML in a fresh incognito context and captures
// the requested region. Failures come back as *errors.ServiceError carrying
// the domain code.
func (s *Service) Screenshot(ctx context.Context, params job.ScreenshotParams) (*job.ScreenshotResult, error) {
	if s.browser == nil {
		return nil, errors.NewServiceError(errors.CodeBrowserError, "browser not started")
	}

	// Backpressure: excess renders queue here (and, upstream, in the broker).
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, mapRenderError(err)
	}
	defer s.sem.Release(1)

	ictx, err := s.browser.Incognito()
	if err != nil {
		return nil, errors.NewServiceError(errors.CodeBrowserError, "create browser context: "+err.Error())
	}
	defer func() {
		// The context must die on every exit path: isolated cookies, cache
		// and storage never outlive the request.
		_ = proto.TargetDisposeBrowserContext{
			BrowserContextID: ictx.BrowserContextID,
		}.Call(s.browser)
	}()

	page, err := ictx.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, errors.NewServiceError(errors.CodeBrowserError, "open page: "+err.Error())
	}
	defer func() { _ = page.Close() }()

	router, err := s.preparePage(page, params)
	if err != nil {
		return nil, mapRenderError(err)
	}
	defer func() { _ = router.Stop() }()

	if err := s.load(ctx, page, params); err != nil {
		return nil, mapRenderError(err)
	}

	if params.WaitForSelector != "" {
		if _, err := page.Timeout(s.cfg.SelectorTimeout).Element(params.WaitForSelector); err != nil {
			return nil, errors.NewServiceError(errors.CodeSelectorNotFound,
				fmt.Sprintf("selector %q not found within %s", params.WaitForSelector, s.cfg.SelectorTimeout))
		}
	}

	imageBytes, err := s.capture(page, params)
	if err != nil {
		return nil, mapRenderError(err)
	}

	return buildResult(imageBytes, params.ImageType), nil
}

// preparePage applies the per-request isolation settings: viewport, device
// scale, headers, JavaScript off, network egress blocked. The returned
// router is running; the caller stops it when the capture is done.
func (s *Service) preparePage(page *rod.Page, params job.ScreenshotParams) (*rod.HijackRouter, error) {
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             *params.Viewport.Width,
		Height:            *params.Viewport.Height,
		DeviceScaleFactor: *params.Scale,
		Mobile:            false,
	}); err != nil {
		return nil, err
	}

	// Inputs are untrusted HTML; scripts never run.
	if err := (proto.EmulationSetScriptExecutionDisabled{Value: true}).Call(page); err != nil {
		return nil, err
	}

	// Headers are applied even though egress is blocked below; they only
	// matter if the egress policy is ever relaxed.
	if len(params.ExtraHTTPHeaders) > 0 {
		keys := make([]string, 0, len(params.ExtraHTTPHeaders))
		for k := range params.ExtraHTTPHeaders {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		pairs := make([]string, 0, len(keys)*2)
		for _, k := range keys {
			pairs = append(pairs, k, params.ExtraHTTPHeaders[k])
		}

		if _, err := page.SetExtraHeaders(pairs); err != nil {
			return nil, err
		}
	}

	// SSRF prevention: abort every interceptable request. data: documents
	// never reach the network stack, so they remain renderable.
	router := page.HijackRequests()
	if err := router.Add("*", "", func(h *rod.Hijack) {
		h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
	}); err != nil {
		return nil, err
	}
	go router.Run()

	return router, nil
}

// load injects style overrides, navigates to the HTML as a data: document
// and waits for the configured lifecycle event, bounded by timeout_ms.
func (s *Service) load(ctx context.Context, page *rod.Page, params job.ScreenshotParams) error {
	html, err := InjectStyles(params.HTML, params.StyleOverrides)
	if err != nil {
		return errors.NewServiceError(errors.CodeScreenshotFailed, "style injection failed: "+err.Error())
	}

	navCtx := ctx
	if *params.TimeoutMs > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, time.Duration(*params.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	nav := page.Context(navCtx)
	wait := nav.WaitNavigation(lifecycleEvent(params.WaitUntil))

	url := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(html))
	if err := nav.Navigate(url); err != nil {
		return err
	}

	wait()

	if navCtx.Err() != nil {
		return errors.NewServiceError(errors.CodeTimeout,
			fmt.Sprintf("navigation did not reach %q within %d ms", params.WaitUntil, *params.TimeoutMs))
	}

	return nil
}

// capture implements the priority cascade: clip > selector > page/viewport.
func (s *Service) capture(page *rod.Page, params job.ScreenshotParams) ([]byte, error) {
	format := proto.PageCaptureScreenshotFormatPng
	if params.ImageType == "jpeg" {
		format = proto.PageCaptureScreenshotFormatJpeg
	}

	switch {
	case params.Clip != nil:
		req := &proto.PageCaptureScreenshot{
			Format: format,
			Clip: &proto.PageViewport{
				X:      params.Clip.X,
				Y:      params.Clip.Y,
				Width:  params.Clip.Width,
				Height: params.Clip.Height,
				Scale:  1,
			},
		}
		applyQuality(req, params)
		return page.Screenshot(false, req)

	case params.Selector != "":
		has, el, err := page.Has(params.Selector)
		if err != nil {
			return nil, err
		}
		if !has {
			return nil, errors.NewServiceError(errors.CodeSelectorNotFound,
				fmt.Sprintf("selector %q matched no element", params.Selector))
		}

		// Element capture ignores full_page and omit_background.
		quality := 0
		if params.ImageType == "jpeg" {
			quality = *params.Quality
		}
		return el.Screenshot(format, quality)

	default:
		if params.OmitBackground && params.ImageType == "png" {
			alpha := 0.0
			if err := (proto.EmulationSetDefaultBackgroundColorOverride{
				Color: &proto.DOMRGBA{R: 0, G: 0, B: 0, A: &alpha},
			}).Call(page); err != nil {
				return nil, err
			}
		}

		req := &proto.PageCaptureScreenshot{Format: format}
		applyQuality(req, params)
		return page.Screenshot(params.FullPage, req)
	}
}

// applyQuality sets quality for JPEG only; Chromium rejects it for PNG.
func applyQuality(req *proto.PageCaptureScreenshot, params job.ScreenshotParams) {
	if params.ImageType == "jpeg" {
		q := *params.Quality
		req.Quality = &q
	}
}

func buildResult(imageBytes []byte, imageType string) *job.ScreenshotResult {
	width, height := imagemeta.Dimensions(imageBytes, imageType)
	encoded := base64.StdEncoding.EncodeToString(imageBytes)

	return &job.ScreenshotResult{
		Image:     &encoded,
		ImageType: imageType,
		Width:     width,
		Height:    height,
		SizeBytes: len(imageBytes),
	}
}

func lifecycleEvent(waitUntil string) proto.PageLifecycleEventName {
	switch waitUntil {
	case "domcontentloaded":
		return proto.PageLifecycleEventNameDOMContentLoaded
	case "networkidle":
		return proto.PageLifecycleEventNameNetworkIdle
	default:
		return proto.PageLifecycleEventNameLoad
	}
}

// mapRenderError folds driver failures into the service error taxonomy.
func mapRenderError(err error) error {
	var se *errors.ServiceError
	if goerrors.As(err, &se) {
		return se
	}

	if goerrors.Is(err, context.DeadlineExceeded) {
		return errors.NewServiceError(errors.CodeTimeout, err.Error())
	}

	return errors.NewServiceError(errors.CodeScreenshotFailed, err.Error())
}

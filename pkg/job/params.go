package job

import (
	"fmt"
	"sort"

	v "github.com/cohesivestack/valgo"
)

// Accepted enum values for the render options.
var (
	WaitUntilValues = []string{"load", "domcontentloaded", "networkidle"}
	ImageTypeValues = []string{"png", "jpeg"}
	EncodingValues  = []string{"base64", "binary"}
)

// Viewport is the emulated browser window size in CSS pixels. The fields are
// pointers so an explicit zero reaches Validate and fails the range check
// instead of silently picking up the default.
type Viewport struct {
	Width  *int `json:"width"`
	Height *int `json:"height"`
}

// ClipRegion is an explicit pixel rectangle to capture. It takes priority
// over selector and full_page.
type ClipRegion struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ScreenshotParams is the validated input object of the screenshot method.
// Optional numeric fields are pointers so that an explicit zero can be told
// apart from an absent field; ApplyDefaults fills the gaps before Validate
// runs.
type ScreenshotParams struct {
	HTML string `json:"html"`

	// Targeting. Capture priority is clip > selector > page/viewport.
	Selector string      `json:"selector,omitempty"`
	Clip     *ClipRegion `json:"clip,omitempty"`
	FullPage bool        `json:"full_page,omitempty"`

	// Render options.
	Viewport         *Viewport         `json:"viewport,omitempty"`
	WaitUntil        string            `json:"wait_until,omitempty"`
	WaitForSelector  string            `json:"wait_for_selector,omitempty"`
	TimeoutMs        *int              `json:"timeout_ms,omitempty"`
	ExtraHTTPHeaders map[string]string `json:"extra_http_headers,omitempty"`
	StyleOverrides   string            `json:"style_overrides,omitempty"`

	// Output options. Encoding is label-only: the wire format is always
	// base64 JSON.
	ImageType      string   `json:"image_type,omitempty"`
	Quality        *int     `json:"quality,omitempty"`
	Scale          *float64 `json:"scale,omitempty"`
	OmitBackground bool     `json:"omit_background,omitempty"`
	Encoding       string   `json:"encoding,omitempty"`
}

// Defaults carries the configured fallback values injected into params that
// omit the corresponding fields.
type Defaults struct {
	ViewportWidth  int
	ViewportHeight int
	ImageType      string
	Quality        int
	WaitUntil      string
	TimeoutMs      int
}

// ApplyDefaults fills every absent optional field from d. It must run before
// Validate so range checks see the effective values.
func (p *ScreenshotParams) ApplyDefaults(d Defaults) {
	if p.Viewport == nil {
		p.Viewport = &Viewport{}
	}
	if p.Viewport.Width == nil {
		w := d.ViewportWidth
		p.Viewport.Width = &w
	}
	if p.Viewport.Height == nil {
		h := d.ViewportHeight
		p.Viewport.Height = &h
	}
	if p.WaitUntil == "" {
		p.WaitUntil = d.WaitUntil
	}
	if p.TimeoutMs == nil {
		t := d.TimeoutMs
		p.TimeoutMs = &t
	}
	if p.ImageType == "" {
		p.ImageType = d.ImageType
	}
	if p.Quality == nil {
		q := d.Quality
		p.Quality = &q
	}
	if p.Scale == nil {
		s := 1.0
		p.Scale = &s
	}
	if p.Encoding == "" {
		p.Encoding = "base64"
	}
}

// Validate checks every field against the parameter contract and returns a
// sorted list of "loc: msg" strings, empty when the params are valid.
// ApplyDefaults must have been called first.
func (p *ScreenshotParams) Validate() []string {
	val := v.Is(
		v.String(p.HTML, "html").Not().Blank("is required and must not be empty"),
		v.Number(*p.Viewport.Width, "viewport.width").Between(1, 7680, "must be between 1 and 7680"),
		v.Number(*p.Viewport.Height, "viewport.height").Between(1, 4320, "must be between 1 and 4320"),
		v.String(p.WaitUntil, "wait_until").InSlice(WaitUntilValues, "must be one of load, domcontentloaded, networkidle"),
		v.Number(*p.TimeoutMs, "timeout_ms").Between(0, 120000, "must be between 0 and 120000"),
		v.String(p.ImageType, "image_type").InSlice(ImageTypeValues, "must be one of png, jpeg"),
		v.Number(*p.Quality, "quality").Between(1, 100, "must be between 1 and 100"),
		v.Number(*p.Scale, "scale").Between(0.1, 4.0, "must be between 0.1 and 4.0"),
		v.String(p.Encoding, "encoding").InSlice(EncodingValues, "must be one of base64, binary"),
	)

	if p.Clip != nil {
		val.Is(
			v.Number(p.Clip.X, "clip.x").GreaterOrEqualTo(0, "must be greater than or equal to 0"),
			v.Number(p.Clip.Y, "clip.y").GreaterOrEqualTo(0, "must be greater than or equal to 0"),
			v.Number(p.Clip.Width, "clip.width").GreaterThan(0, "must be greater than 0"),
			v.Number(p.Clip.Height, "clip.height").GreaterThan(0, "must be greater than 0"),
		)
	}

	if val.Valid() {
		return nil
	}

	details := make([]string, 0, len(val.Errors()))
	for name, fieldErr := range val.Errors() {
		for _, msg := range fieldErr.Messages() {
			details = append(details, fmt.Sprintf("%s: %s", name, msg))
		}
	}

	sort.Strings(details)
	return details
}

package gcpimg

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TestResult holds the result of rendering a component for testing.
//
// Provides convenience methods for asserting on HTML content, headers
// and status codes, plus a goquery document for structural checks.
type TestResult struct {
	HTML       string
	StatusCode int
	Headers    http.Header

	doc *goquery.Document
}

// TestableComponent combines Hydrater and Renderer for testing.
type TestableComponent interface {
	Hydrater
	Renderer
}

// TestRender runs Hydrate and Render against props directly, bypassing
// URL encoding and the HTTP route.
//
//	result, err := gcpimg.TestRender(img, gcpimg.Props{Attrs: attrs})
//	if result.Find("source").Length() != 3 {
//	    t.Fatal("missing sources")
//	}
func TestRender(comp TestableComponent, props Props) (*TestResult, error) {
	return TestRenderWithContext(context.Background(), comp, props)
}

// TestRenderWithContext is TestRender with a caller-supplied context.
func TestRenderWithContext(ctx context.Context, comp TestableComponent, props Props) (*TestResult, error) {
	if err := comp.Hydrate(ctx, &props); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := comp.Render(ctx, props).Render(ctx, &buf); err != nil {
		return nil, err
	}

	return &TestResult{
		HTML:       buf.String(),
		StatusCode: http.StatusOK,
		Headers:    make(http.Header),
	}, nil
}

// TestGet simulates the lazy-load request against an HXComponent. Extra
// headers (ECT, Save-Data, Accept) shape the sampled capabilities.
//
//	result, err := gcpimg.TestGet(img, url, http.Header{"Accept": {"image/webp"}})
func TestGet(comp HXComponent, url string, headers ...http.Header) (*TestResult, error) {
	req := httptest.NewRequest(http.MethodGet, url, nil)
	req.Header.Set("HX-Request", "true")
	for _, h := range headers {
		for k, vs := range h {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
	}

	rec := httptest.NewRecorder()
	comp.HXServeHTTP(rec, req)

	return &TestResult{
		HTML:       rec.Body.String(),
		StatusCode: rec.Code,
		Headers:    rec.Header(),
	}, nil
}

// HTMLContains checks if the HTML contains a substring.
func (r *TestResult) HTMLContains(substr string) bool {
	return strings.Contains(r.HTML, substr)
}

// HTMLContainsAll checks if the HTML contains all the given substrings.
func (r *TestResult) HTMLContainsAll(substrs ...string) bool {
	for _, s := range substrs {
		if !strings.Contains(r.HTML, s) {
			return false
		}
	}
	return true
}

// Find runs a CSS selector over the rendered HTML.
func (r *TestResult) Find(selector string) *goquery.Selection {
	if r.doc == nil {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(r.HTML))
		if err != nil {
			return &goquery.Selection{}
		}
		r.doc = doc
	}
	return r.doc.Find(selector)
}

// IsOK checks if the status code is 200.
func (r *TestResult) IsOK() bool {
	return r.StatusCode == http.StatusOK
}

// HasStatus checks if the status code matches.
func (r *TestResult) HasStatus(code int) bool {
	return r.StatusCode == code
}

// HasHeader checks if a header is set with the given value.
func (r *TestResult) HasHeader(key, value string) bool {
	return r.Headers.Get(key) == value
}

// GetHeader returns the value of a header.
func (r *TestResult) GetHeader(key string) string {
	return r.Headers.Get(key)
}

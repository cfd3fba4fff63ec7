package gcpimg

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/a-h/templ"

	"github.com/pthm/gcpimg/lib/cdn"
)

const testSrc = "https://lh3.googleusercontent.com/base"

var testKey = []byte("0123456789abcdef0123456789abcdef")

func spinner() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<span class="spinner"></span>`)
		return err
	})
}

func renderDoc(t *testing.T, c templ.Component) *goquery.Document {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	doc, err := goquery.NewDocumentFromReader(&buf)
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func registered(opts ...Option) (*Image, *Registry) {
	img := New("test", opts...)
	reg := NewRegistry(testKey)
	reg.Add(img)
	return img, reg
}

// lazyURL renders the lazy wrapper and returns the route it will request.
func lazyURL(t *testing.T, img *Image, attrs Attrs) string {
	t.Helper()
	doc := renderDoc(t, img.Lazy(attrs, nil))
	url, ok := doc.Find("." + HostClass).Attr("hx-get")
	if !ok {
		t.Fatal("wrapper has no hx-get")
	}
	return url
}

func TestNew_Prefix(t *testing.T) {
	a := New("hero")
	b := New("hero")

	if !strings.HasPrefix(a.Prefix(), "/_c/hero-") {
		t.Errorf("Prefix() = %q, want /_c/hero-...", a.Prefix())
	}
	if a.Prefix() == b.Prefix() {
		t.Error("images built on different lines should have different prefixes")
	}
	if a.HXPrefix() != a.Prefix() {
		t.Error("HXPrefix() should equal Prefix()")
	}
	if a.Convention().Name != cdn.Picture.Name {
		t.Errorf("default convention = %q, want %q", a.Convention().Name, cdn.Picture.Name)
	}
}

func TestImage_Lazy(t *testing.T) {
	img, _ := registered()
	doc := renderDoc(t, img.Lazy(Attrs{"src": testSrc, "placeholder": "spin"}, spinner()))

	wrapper := doc.Find("." + HostClass)
	if wrapper.Length() != 1 {
		t.Fatalf("expected one wrapper, got %d", wrapper.Length())
	}
	if got, _ := wrapper.Attr("hx-trigger"); got != TriggerIntersectOnce {
		t.Errorf("hx-trigger = %q", got)
	}
	if _, ok := wrapper.Attr(AttrIntersecting); ok {
		t.Error("lazy wrapper should not start intersecting")
	}
	if doc.Find("picture").Length() != 0 {
		t.Error("lazy wrapper should not contain the picture yet")
	}

	ph := wrapper.Find("." + PlaceholderClass)
	if got, _ := ph.Attr("aria-hidden"); got != "false" {
		t.Errorf("placeholder aria-hidden = %q, want false", got)
	}
	if got, _ := ph.Attr("data-slot"); got != "spin" {
		t.Errorf("placeholder data-slot = %q", got)
	}
	if ph.Find(".spinner").Length() != 1 {
		t.Error("placeholder content missing")
	}
}

func TestImage_LazyRoundTrip(t *testing.T) {
	img, _ := registered()
	url := lazyURL(t, img, Attrs{"src": testSrc, "size": "640", "rotate": "90", "alt": "A cat"})

	result, err := TestGet(img, url)
	if err != nil {
		t.Fatalf("TestGet() error = %v", err)
	}
	if !result.IsOK() {
		t.Fatalf("status = %d, body = %s", result.StatusCode, result.HTML)
	}

	im := result.Find("picture img")
	if got, _ := im.Attr("src"); got != testSrc+"=w640-v1-e365-nw-r90" {
		t.Errorf("src = %q", got)
	}
	if got, _ := im.Attr("alt"); got != "A cat" {
		t.Errorf("alt = %q", got)
	}
	if got, _ := im.Attr("aria-hidden"); got != "true" {
		t.Errorf("aria-hidden = %q, want true until load", got)
	}
	if !strings.Contains(result.GetHeader("Vary"), "ECT") {
		t.Errorf("Vary = %q", result.GetHeader("Vary"))
	}
}

func TestImage_LoadCapabilities(t *testing.T) {
	img, _ := registered()
	url := lazyURL(t, img, Attrs{"src": testSrc, "darksrc": testSrc + "-dark"})

	result, err := TestGet(img, url, http.Header{
		HeaderECT:    {"2g"},
		HeaderAccept: {"image/webp,*/*"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if got, _ := result.Find("img").Attr("src"); got != testSrc+"=v3-e365-nw" {
		t.Errorf("src = %q, want slow quality", got)
	}

	sources := result.Find("source")
	if sources.Length() != 3 {
		t.Fatalf("sources = %d, want 3: %s", sources.Length(), result.HTML)
	}
	want := []struct{ srcset, media, typ string }{
		{testSrc + "-dark=v3-e365-rw", cdn.MediaDark, cdn.TypeWebP},
		{testSrc + "-dark=v3-e365-nw", cdn.MediaDark, ""},
		{testSrc + "=v3-e365-rw", "", cdn.TypeWebP},
	}
	sources.Each(func(i int, s *goquery.Selection) {
		srcset, _ := s.Attr("srcset")
		media, _ := s.Attr("media")
		typ, _ := s.Attr("type")
		if srcset != want[i].srcset || media != want[i].media || typ != want[i].typ {
			t.Errorf("source %d = (%q, %q, %q), want %+v", i, srcset, media, typ, want[i])
		}
	})
}

func TestImage_Sensitive(t *testing.T) {
	img := New("secret").Sensitive()
	reg := NewRegistry(testKey)
	reg.Add(img)

	url := lazyURL(t, img, Attrs{"src": testSrc})
	if strings.Contains(url, "googleusercontent") {
		t.Errorf("sealed url leaks the source: %s", url)
	}

	result, err := TestGet(img, url)
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsOK() {
		t.Fatalf("status = %d", result.StatusCode)
	}
	if !result.HTMLContains(testSrc + "=v1-e365-nw") {
		t.Errorf("unexpected markup: %s", result.HTML)
	}
}

func TestImage_ServeErrors(t *testing.T) {
	img, _ := registered()
	good := lazyURL(t, img, Attrs{"src": testSrc})
	// Lazy refuses these, so build the routes a stale or forged page would hit.
	badParse := img.buildURL(Attrs{"src": testSrc, "sizes": "[{"})
	unknown := img.buildURL(Attrs{"src": testSrc, "width": "10"})
	noSrc := img.buildURL(Attrs{"alt": "x"})

	tests := []struct {
		name   string
		url    string
		expect int
	}{
		{"good", good, http.StatusOK},
		{"malformed sizes", badParse, http.StatusBadRequest},
		{"unknown attribute", unknown, http.StatusBadRequest},
		{"missing src", noSrc, http.StatusBadRequest},
		{"no params", img.Prefix() + "/", http.StatusBadRequest},
		{"tampered", tamperQuery(good), http.StatusBadRequest},
		{"unknown sub-route", img.Prefix() + "/other", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := TestGet(img, tt.url)
			if err != nil {
				t.Fatal(err)
			}
			if !result.HasStatus(tt.expect) {
				t.Errorf("status = %d, want %d (%s)", result.StatusCode, tt.expect, result.HTML)
			}
		})
	}
}

func tamperQuery(url string) string {
	i := strings.Index(url, "?p=") + 3
	c := byte('A')
	if url[i] == 'A' {
		c = 'B'
	}
	return url[:i] + string(c) + url[i+1:]
}

func TestImage_LazyRejectsBadAttributes(t *testing.T) {
	img, _ := registered()

	tests := []struct {
		name  string
		attrs Attrs
		want  error
	}{
		{"malformed config", Attrs{"src": testSrc, "config": "[{bad"}, ErrParse},
		{"malformed sizes", Attrs{"src": testSrc, "sizes": "[{"}, ErrParse},
		{"unknown attribute", Attrs{"src": testSrc, "width": "10"}, cdn.ErrUnknownAttribute},
		{"missing src", Attrs{"alt": "x"}, ErrMissingSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := img.Lazy(tt.attrs, spinner()).Render(context.Background(), &buf)
			if !errors.Is(err, tt.want) {
				t.Errorf("Render() error = %v, want %v", err, tt.want)
			}
			if buf.Len() != 0 {
				t.Errorf("Render() wrote %q before failing", buf.String())
			}
		})
	}
}

func TestImage_MethodNotAllowed(t *testing.T) {
	img, _ := registered()
	req := httptest.NewRequest(http.MethodPost, img.Prefix()+"/", nil)
	rec := httptest.NewRecorder()
	img.HXServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestImage_Eager(t *testing.T) {
	img := New("eager", WithEager())
	doc := renderDoc(t, img.Tag(Attrs{"src": testSrc, "size": "100,50", "fixed": ""}, cdn.Capabilities{}, spinner()))

	wrapper := doc.Find("." + HostClass)
	if _, ok := wrapper.Attr(AttrIntersecting); !ok {
		t.Error("eager wrapper should be intersecting")
	}
	if _, ok := wrapper.Attr("hx-get"); ok {
		t.Error("eager wrapper should not lazy-load")
	}

	im := wrapper.Find("picture img")
	if got, _ := im.Attr("src"); got != testSrc+"=w100-h50-v1-e365-nw" {
		t.Errorf("src = %q", got)
	}
	if got, _ := im.Attr("width"); got != "100" {
		t.Errorf("width = %q", got)
	}
	if got, _ := im.Attr("height"); got != "50" {
		t.Errorf("height = %q", got)
	}
}

func TestImage_EagerParseError(t *testing.T) {
	img := New("eager", WithEager())
	err := img.Eager(Attrs{"src": testSrc, "config": "{oops"}, cdn.Capabilities{}, nil).Render(context.Background(), io.Discard)

	if !errors.Is(err, ErrParse) {
		t.Errorf("error = %v, want ErrParse", err)
	}
}

func TestImage_HydrateCaches(t *testing.T) {
	img := New("cache", WithCacheSize(4))
	attrs := Attrs{"src": testSrc, "radius": "500"}

	var p1, p2 Props
	p1.Attrs, p2.Attrs = attrs, attrs
	if err := img.Hydrate(context.Background(), &p1); err != nil {
		t.Fatal(err)
	}
	if err := img.Hydrate(context.Background(), &p2); err != nil {
		t.Fatal(err)
	}
	if img.parsed.Len() != 1 {
		t.Errorf("cache entries = %d, want 1", img.parsed.Len())
	}
	if p2.Image.Radius != cdn.MaxRadius {
		t.Errorf("Radius = %d, want clamped %d", p2.Image.Radius, cdn.MaxRadius)
	}
}

func TestTestRender(t *testing.T) {
	img := New("render")
	result, err := TestRender(img, Props{Attrs: Attrs{"src": testSrc, "flip": "h"}})
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := result.Find("img").Attr("src"); got != testSrc+"=v1-e365-nw-fh" {
		t.Errorf("src = %q", got)
	}
	if !result.HTMLContainsAll(`onload="gcpImgLoadEnd(this,true)"`, `onerror="gcpImgLoadEnd(this,false)"`) {
		t.Errorf("load handlers missing: %s", result.HTML)
	}

	if _, err := TestRender(img, Props{Attrs: Attrs{}}); !errors.Is(err, ErrMissingSource) {
		t.Errorf("error = %v, want ErrMissingSource", err)
	}
}

type countingMetrics struct {
	rendered map[string]int
	failed   map[string]int
}

func (m *countingMetrics) Rendered(mode string) { m.rendered[mode]++ }
func (m *countingMetrics) Failed(kind string)   { m.failed[kind]++ }

func TestImage_Metrics(t *testing.T) {
	m := &countingMetrics{rendered: map[string]int{}, failed: map[string]int{}}
	img, _ := registered(WithMetrics(m))

	url := lazyURL(t, img, Attrs{"src": testSrc})
	if _, err := TestGet(img, url); err != nil {
		t.Fatal(err)
	}
	if _, err := TestGet(img, img.buildURL(Attrs{"src": testSrc, "sizes": "["})); err != nil {
		t.Fatal(err)
	}
	if err := img.Lazy(Attrs{"src": testSrc, "config": "["}, nil).Render(context.Background(), io.Discard); err == nil {
		t.Fatal("Lazy() with malformed config should fail")
	}

	if m.rendered["lazy"] != 1 || m.rendered["load"] != 1 {
		t.Errorf("rendered = %v", m.rendered)
	}
	if m.failed["parse"] != 2 {
		t.Errorf("failed = %v", m.failed)
	}
}

func TestPicture_Escaping(t *testing.T) {
	a := cdn.Attributes{Src: testSrc, Alt: `"><script>x</script>`}
	r := cdn.NewEncoder(cdn.Picture).Encode(a, cdn.Capabilities{})

	var buf bytes.Buffer
	if err := Picture(a, r).Render(context.Background(), &buf); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "<script>") {
		t.Errorf("alt not escaped: %s", buf.String())
	}
}

func TestLoadEndScript(t *testing.T) {
	var buf bytes.Buffer
	if err := LoadEndScript().Render(context.Background(), &buf); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"function gcpImgLoadEnd", `"loadend"`, "detail: {success: ok}"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("script missing %q", want)
		}
	}
}

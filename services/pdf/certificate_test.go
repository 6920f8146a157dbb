package pdfsvc

import (
	"bytes"
	"context"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/signintech/gopdf"

	"github.com/saifdine/daura/core"
	"github.com/saifdine/daura/core/certificate"
)

var testFont = filepath.Join("testdata", "LiberationSerif-Regular.ttf")

// newTestRenderer uses the fixture font for both weights; glyphs it lacks get
// substituted by gopdf, which is fine for layout assertions.
func newTestRenderer() *CertificateRenderer {
	return &CertificateRenderer{
		fontRegular: testFont,
		fontBold:    testFont,
		client:      &http.Client{Timeout: 5 * time.Second},
	}
}

func testCertData() certificate.Data {
	return certificate.Data{
		FullName:    "سعيد Karim",
		CourseTitle: "دورة تجريبية",
		IssuedAt:    time.Date(2026, time.September, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewCertificateRenderer(t *testing.T) {
	restore := core.Conf.WorkDir
	t.Cleanup(func() { core.Conf.WorkDir = restore })
	core.Conf.WorkDir = t.TempDir()

	if _, err := NewCertificateRenderer(); err == nil {
		t.Error("NewCertificateRenderer() error = nil, want missing font error")
	}

	dir := filepath.Join(core.Conf.WorkDir, "assets", "fonts")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("creating font dir: %v", err)
	}
	font, err := ioutil.ReadFile(testFont)
	if err != nil {
		t.Fatalf("reading test font: %v", err)
	}
	for _, name := range []string{"Cairo-Regular.ttf", "Cairo-Bold.ttf"} {
		if err = ioutil.WriteFile(filepath.Join(dir, name), font, 0644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}

	r, err := NewCertificateRenderer()
	if err != nil {
		t.Fatalf("NewCertificateRenderer() error = %v", err)
	}
	if want := filepath.Join(dir, "Cairo-Regular.ttf"); r.fontRegular != want {
		t.Errorf("fontRegular = %q, want %q", r.fontRegular, want)
	}
}

func TestCertificateRendererFullLayout(t *testing.T) {
	got, err := newTestRenderer().Render(context.Background(), testCertData())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !bytes.HasPrefix(got, []byte("%PDF")) {
		t.Error("Render() did not produce a PDF document")
	}
}

func TestCertificateRendererTemplate(t *testing.T) {
	// uploads are restricted to PDFs, so the background template arrives as
	// a PDF page, not an image
	tmpl := templatePDF()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(tmpl)
	}))
	defer srv.Close()

	data := testCertData()
	data.TemplateURL = srv.URL + "/templates/course-1.pdf"

	got, err := newTestRenderer().Render(context.Background(), data)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !bytes.HasPrefix(got, []byte("%PDF")) {
		t.Error("Render() did not produce a PDF document")
	}
}

func TestCertificateRendererTemplateErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "malformed template",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/pdf")
				w.Write([]byte("not a pdf"))
			},
		},
		{
			name: "fetch failure",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			data := testCertData()
			data.TemplateURL = srv.URL + "/templates/course-1.pdf"

			if _, err := newTestRenderer().Render(context.Background(), data); err == nil {
				t.Error("Render() error = nil, want template error")
			}
		})
	}
}

// templatePDF builds a single-page background the way an admin upload would
// look after passing validation.
func templatePDF() []byte {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: gopdf.Rect{W: pageW, H: pageH}})
	pdf.AddPage()
	pdf.SetFillColor(emerald[0], emerald[1], emerald[2])
	pdf.RectFromUpperLeftWithStyle(0, 0, pageW, 80, "F")
	return pdf.GetBytesPdf()
}

package pdfsvc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/signintech/gopdf"

	"github.com/saifdine/daura/core"
	"github.com/saifdine/daura/core/certificate"
)

// A4 landscape, in points.
const (
	pageW = 841.89
	pageH = 595.28
)

// palette matching the site's certificate styling
var (
	emerald = [3]uint8{0x05, 0x96, 0x69}
	slate   = [3]uint8{0x47, 0x55, 0x69}
	ink     = [3]uint8{0x33, 0x41, 0x55}
	grey    = [3]uint8{0x64, 0x74, 0x8b}
)

// CertificateRenderer lays out the completion certificate on an A4 landscape
// page. All Arabic strings are shaped and reversed before drawing since PDF
// text runs left to right.
type CertificateRenderer struct {
	fontRegular string
	fontBold    string
	client      *http.Client
}

var _ certificate.Renderer = (*CertificateRenderer)(nil)

// NewCertificateRenderer fails when the font files are not provisioned so a
// misconfigured deployment surfaces at startup, not on the first download.
// See assets/fonts/README.md.
func NewCertificateRenderer() (*CertificateRenderer, error) {
	dir := filepath.Join(core.Conf.WorkDir, "assets", "fonts")
	r := &CertificateRenderer{
		fontRegular: filepath.Join(dir, "Cairo-Regular.ttf"),
		fontBold:    filepath.Join(dir, "Cairo-Bold.ttf"),
		client:      &http.Client{Timeout: 15 * time.Second},
	}
	for _, path := range []string{r.fontRegular, r.fontBold} {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.Wrap(err, "certificate font missing")
		}
	}
	return r, nil
}

func (r *CertificateRenderer) Render(ctx context.Context, data certificate.Data) ([]byte, error) {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: gopdf.Rect{W: pageW, H: pageH}})
	pdf.AddPage()

	if err := pdf.AddTTFFont("cairo", r.fontRegular); err != nil {
		return nil, errors.Wrap(err, "loading font")
	}
	if err := pdf.AddTTFFont("cairo-bold", r.fontBold); err != nil {
		return nil, errors.Wrap(err, "loading bold font")
	}

	if data.TemplateURL != "" {
		if err := r.drawTemplate(ctx, pdf, data.TemplateURL); err != nil {
			return nil, err
		}
		// uploaded templates carry their own artwork; overlay only the
		// student name and the issuance date
		if err := r.drawOverlay(pdf, data); err != nil {
			return nil, err
		}
	} else if err := r.drawFullLayout(pdf, data); err != nil {
		return nil, err
	}

	return pdf.GetBytesPdf(), nil
}

// drawTemplate paints the first page of the uploaded template PDF under the
// overlay. gofpdi panics on input it cannot parse, so the import is fenced
// with a recover.
func (r *CertificateRenderer) drawTemplate(ctx context.Context, pdf *gopdf.GoPdf, url string) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "building template request")
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "fetching template")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("fetching template: %s", resp.Status)
	}

	raw, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "reading template")
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Errorf("importing template: %v", rec)
		}
	}()
	src := io.ReadSeeker(bytes.NewReader(raw))
	tpl := pdf.ImportPageStream(&src, 1, "/MediaBox")
	pdf.UseImportedTemplate(tpl, 0, 0, pageW, pageH)
	return nil
}

func (r *CertificateRenderer) drawOverlay(pdf *gopdf.GoPdf, data certificate.Data) error {
	if err := pdf.SetFont("cairo-bold", "", 34); err != nil {
		return err
	}
	pdf.SetTextColor(emerald[0], emerald[1], emerald[2])
	if err := r.centerText(pdf, certificate.ShapeMixedText(data.FullName), 300); err != nil {
		return err
	}

	if err := pdf.SetFont("cairo", "", 14); err != nil {
		return err
	}
	pdf.SetTextColor(grey[0], grey[1], grey[2])
	return r.centerText(pdf, certificate.ShapeText(issuedAtLine(data.IssuedAt)), 500)
}

func (r *CertificateRenderer) drawFullLayout(pdf *gopdf.GoPdf, data certificate.Data) error {
	// double border
	pdf.SetStrokeColor(emerald[0], emerald[1], emerald[2])
	pdf.SetLineWidth(6)
	pdf.RectFromUpperLeftWithStyle(20, 20, pageW-40, pageH-40, "D")
	pdf.SetLineWidth(1.5)
	pdf.RectFromUpperLeftWithStyle(34, 34, pageW-68, pageH-68, "D")

	type block struct {
		text  string
		font  string
		size  float64
		color [3]uint8
		y     float64
	}
	blocks := []block{
		{"Certificate of Completion", "cairo-bold", 24, emerald, 85},
		{certificate.ShapeText("شهادة إتمام"), "cairo-bold", 30, emerald, 125},
		{certificate.ShapeText("هذا يشهد بأن"), "cairo", 16, slate, 185},
		{certificate.ShapeMixedText(data.FullName), "cairo-bold", 28, emerald, 230},
		{certificate.ShapeText("قد أكمل بنجاح"), "cairo", 17, ink, 280},
		{certificate.ShapeMixedText(data.CourseTitle), "cairo-bold", 20, emerald, 320},
		{certificate.ShapeText("دورة غراس لمدة 10 أيام"), "cairo", 16, slate, 355},
		{certificate.ShapeText("أكاديمية غراس للعلم"), "cairo", 14, grey, 390},
		{certificate.ShapeText("بحضور كامل لجميع الأيام العشرة"), "cairo", 12, grey, 418},
		{certificate.ShapeText(issuedAtLine(data.IssuedAt)), "cairo", 12, grey, 470},
	}
	for _, b := range blocks {
		if err := pdf.SetFont(b.font, "", b.size); err != nil {
			return err
		}
		pdf.SetTextColor(b.color[0], b.color[1], b.color[2])
		if err := r.centerText(pdf, b.text, b.y); err != nil {
			return err
		}
	}

	// divider under the titles
	pdf.SetLineWidth(1)
	pdf.Line(pageW/2-120, 152, pageW/2+120, 152)

	// signature line and seal
	if err := pdf.SetFont("cairo", "", 12); err != nil {
		return err
	}
	pdf.SetTextColor(grey[0], grey[1], grey[2])
	pdf.Line(120, 510, 280, 510)
	if err := r.textAt(pdf, certificate.ShapeText("التوقيع"), 175, 520); err != nil {
		return err
	}

	pdf.SetFillColor(emerald[0], emerald[1], emerald[2])
	pdf.Oval(pageW-240, 460, pageW-160, 540)
	pdf.SetTextColor(255, 255, 255)
	if err := pdf.SetFont("cairo-bold", "", 14); err != nil {
		return err
	}
	if err := r.textAt(pdf, certificate.ShapeText("غراس"), pageW-220, 492); err != nil {
		return err
	}

	if err := pdf.SetFont("cairo", "", 10); err != nil {
		return err
	}
	pdf.SetTextColor(0x94, 0xa3, 0xb8)
	return r.centerText(pdf, "www.ghras.academy", 555)
}

func (r *CertificateRenderer) centerText(pdf *gopdf.GoPdf, text string, y float64) error {
	w, err := pdf.MeasureTextWidth(text)
	if err != nil {
		return errors.Wrap(err, "measuring text")
	}
	return r.textAt(pdf, text, (pageW-w)/2, y)
}

func (r *CertificateRenderer) textAt(pdf *gopdf.GoPdf, text string, x, y float64) error {
	pdf.SetX(x)
	pdf.SetY(y)
	return errors.Wrap(pdf.Cell(nil, text), "drawing text")
}

func issuedAtLine(t time.Time) string {
	return fmt.Sprintf("تاريخ الإصدار: %s", t.Format(core.DateFormat))
}

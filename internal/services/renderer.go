package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"strings"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/yungbote/coursepass-backend/internal/platform/logger"
)

type CertificateInput struct {
	CertificateID string
	StudentName   string
	DiplomaTitle  string
	IssuedAt      time.Time
	Template      CertificateTemplate
}

type CertificateRenderer interface {
	// Render returns PNG bytes. Output depends only on the input.
	Render(ctx context.Context, in CertificateInput) ([]byte, error)
}

type pngRenderer struct {
	log     *logger.Logger
	regular *truetype.Font
	bold    *truetype.Font
}

// NewCertificateRenderer uses the Go fonts unless fontPath names a TTF.
func NewCertificateRenderer(log *logger.Logger, fontPath string) (CertificateRenderer, error) {
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	if p := strings.TrimSpace(fontPath); p != "" {
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read font file: %w", err)
		}
		custom, err := truetype.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse TTF: %w", err)
		}
		regular, bold = custom, custom
	}
	return &pngRenderer{log: log.With("service", "CertificateRenderer"), regular: regular, bold: bold}, nil
}

func (r *pngRenderer) face(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingNone})
}

func (r *pngRenderer) Render(ctx context.Context, in CertificateInput) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t := in.Template
	if t.Width <= 0 || t.Height <= 0 {
		return nil, fmt.Errorf("template %q has no size", t.Key)
	}
	bg, _ := parseHexColor(t.Background)
	border, _ := parseHexColor(t.Border)
	accent, _ := parseHexColor(t.Accent)
	ink, _ := parseHexColor(t.Text)

	w, h := float64(t.Width), float64(t.Height)
	dc := gg.NewContext(t.Width, t.Height)
	dc.SetColor(bg)
	dc.DrawRectangle(0, 0, w, h)
	dc.Fill()

	if t.BackgroundImage != "" {
		img, err := loadScaledImage(t.BackgroundImage, t.Width, t.Height)
		if err != nil {
			return nil, err
		}
		dc.DrawImage(img, 0, 0)
	}

	margin := h * 0.04
	dc.SetColor(border)
	dc.SetLineWidth(h * 0.012)
	dc.DrawRectangle(margin, margin, w-2*margin, h-2*margin)
	dc.Stroke()
	dc.SetColor(accent)
	dc.SetLineWidth(h * 0.003)
	inner := margin * 1.6
	dc.DrawRectangle(inner, inner, w-2*inner, h-2*inner)
	dc.Stroke()

	cx := w / 2
	dc.SetColor(border)
	dc.SetFontFace(r.face(r.bold, h*0.07))
	dc.DrawStringAnchored(t.Heading, cx, h*0.24, 0.5, 0.5)

	dc.SetColor(ink)
	dc.SetFontFace(r.face(r.regular, h*0.03))
	dc.DrawStringAnchored(t.Preamble, cx, h*0.36, 0.5, 0.5)

	dc.SetColor(accent)
	dc.SetFontFace(r.face(r.bold, h*0.06))
	dc.DrawStringAnchored(in.StudentName, cx, h*0.46, 0.5, 0.5)
	dc.SetLineWidth(h * 0.002)
	dc.DrawLine(w*0.25, h*0.51, w*0.75, h*0.51)
	dc.Stroke()

	dc.SetColor(ink)
	dc.SetFontFace(r.face(r.regular, h*0.03))
	dc.DrawStringAnchored(t.Body, cx, h*0.58, 0.5, 0.5)
	dc.SetFontFace(r.face(r.bold, h*0.045))
	dc.DrawStringWrapped(in.DiplomaTitle, cx, h*0.66, 0.5, 0.5, w*0.7, 1.3, gg.AlignCenter)

	dc.SetFontFace(r.face(r.regular, h*0.02))
	footer := fmt.Sprintf("Issued %s  |  Certificate %s", in.IssuedAt.UTC().Format("2 January 2006"), in.CertificateID)
	dc.DrawStringAnchored(footer, cx, h*0.86, 0.5, 0.5)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func loadScaledImage(path string, width, height int) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open background image: %w", err)
	}
	defer f.Close()
	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode background image: %w", err)
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst, nil
}

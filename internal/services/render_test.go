package services

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/coursepass-backend/internal/data/repos/testutil"
)

func TestTemplateCatalog_EmbeddedAndFallback(t *testing.T) {
	cat, err := LoadTemplateCatalog("")
	require.NoError(t, err)
	require.Equal(t, "classic", cat.Lookup("classic").Key)
	require.Equal(t, "default", cat.Lookup("does-not-exist").Key)
	require.Equal(t, "default", cat.Lookup("").Key)
}

func TestParseTemplateCatalog_Rejects(t *testing.T) {
	_, err := ParseTemplateCatalog([]byte("default: x\ntemplates: {}\n"))
	require.Error(t, err)

	_, err = ParseTemplateCatalog([]byte(`
default: a
templates:
  a: {width: 10, height: 10, background: "nope", border: "#000000", accent: "#000000", text: "#000000"}
`))
	require.Error(t, err)

	_, err = ParseTemplateCatalog([]byte(`
default: missing
templates:
  a: {width: 10, height: 10, background: "#ffffff", border: "#000000", accent: "#000000", text: "#000000"}
`))
	require.Error(t, err)
}

func TestRenderer_ProducesTemplateSizedPNG(t *testing.T) {
	cat, err := ParseTemplateCatalog([]byte(`
default: small
templates:
  small:
    width: 400
    height: 280
    background: "#ffffff"
    border: "#112233"
    accent: "#aa8800"
    text: "#000000"
    heading: "Certificate"
    preamble: "Awarded to"
    body: "for completing"
`))
	require.NoError(t, err)
	r, err := NewCertificateRenderer(testutil.Logger(t), "")
	require.NoError(t, err)

	in := CertificateInput{
		CertificateID: "c-1",
		StudentName:   "Ada Lovelace",
		DiplomaTitle:  "Diploma in Analytical Engines",
		IssuedAt:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Template:      cat.Lookup("small"),
	}
	out, err := r.Render(context.Background(), in)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	require.Equal(t, 400, img.Bounds().Dx())
	require.Equal(t, 280, img.Bounds().Dy())

	again, err := r.Render(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, out, again)
}

func TestLocalArtifactStore_Overwrites(t *testing.T) {
	dir := t.TempDir()
	store := &LocalArtifactStore{Root: dir, BaseURL: "http://localhost:8080/files"}

	ref, err := store.Put(context.Background(), "certificates/a/b/c.png", strings.NewReader("one"), "image/png")
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080/files/certificates/a/b/c.png", ref)

	_, err = store.Put(context.Background(), "certificates/a/b/c.png", strings.NewReader("two"), "image/png")
	require.NoError(t, err)
	body, err := os.ReadFile(filepath.Join(dir, "certificates", "a", "b", "c.png"))
	require.NoError(t, err)
	require.Equal(t, "two", string(body))

	_, err = store.Put(context.Background(), "../escape.png", strings.NewReader("x"), "image/png")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "escape.png"))
	require.NoError(t, err, "keys are confined to the root")
}

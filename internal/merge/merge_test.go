package merge

import (
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperdock/paperdock/internal/errors"
)

func TestDetectMode(t *testing.T) {
	tests := []struct {
		name    string
		files   []string
		want    Mode
		wantErr bool
	}{
		{"pdf batch", []string{"a.pdf", "b.PDF"}, ModePDF, false},
		{"image batch", []string{"a.png", "b.jpg", "c.jpeg", "d.gif"}, ModeImages, false},
		{"mixed batch", []string{"a.pdf", "b.png"}, 0, true},
		{"unsupported extension", []string{"a.txt"}, 0, true},
		{"empty batch", nil, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, err := DetectMode(tt.files)
			if tt.wantErr {
				assert.True(t, errors.Is(err, errors.ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, mode)
		})
	}
}

func TestMergeValidation(t *testing.T) {
	p := New(nil)

	t.Run("missing output path", func(t *testing.T) {
		err := p.Merge(Batch{Files: []string{"a.png"}})
		assert.True(t, errors.Is(err, errors.ErrValidation))
	})

	t.Run("dates must parallel files", func(t *testing.T) {
		err := p.Merge(Batch{Files: []string{"a.png", "b.png"}, Dates: []string{"2020-01-01"}, Output: "out.gif"})
		assert.True(t, errors.Is(err, errors.ErrValidation))
	})

	t.Run("labels must parallel files", func(t *testing.T) {
		err := p.Merge(Batch{Files: []string{"a.png"}, Labels: []string{"x", "y"}, Output: "out.gif"})
		assert.True(t, errors.Is(err, errors.ErrValidation))
	})
}

func writeTestPNG(t *testing.T, path string, w, h int, fill color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = fill.R
		img.Pix[i+1] = fill.G
		img.Pix[i+2] = fill.B
		img.Pix[i+3] = 255
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestMergeImages(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	writeTestPNG(t, a, 120, 80, color.RGBA{R: 200, G: 180, B: 160})
	writeTestPNG(t, b, 100, 100, color.RGBA{R: 40, G: 60, B: 80})
	out := filepath.Join(dir, "merged.gif")

	p := New(nil)
	err := p.Merge(Batch{
		Files:  []string{a, b},
		Dates:  []string{"2020-01-01", "2020-02-02"},
		Labels: []string{"first", "second"},
		Output: out,
	})
	require.NoError(t, err)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	g, err := gif.DecodeAll(f)
	require.NoError(t, err)

	require.Len(t, g.Image, 2, "one frame per input, in input order")
	assert.Equal(t, 120, g.Image[0].Bounds().Dx())
	assert.Equal(t, 100, g.Image[1].Bounds().Dx())
	assert.Equal(t, 120, g.Config.Width, "canvas covers the widest frame")
	assert.Equal(t, 100, g.Config.Height)

	_, errA := os.Stat(a)
	_, errB := os.Stat(b)
	assert.True(t, os.IsNotExist(errA), "inputs are deleted after a successful merge")
	assert.True(t, os.IsNotExist(errB))
}

func TestMergeImagesFailurePreservesInputs(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	writeTestPNG(t, a, 10, 10, color.RGBA{R: 128, G: 128, B: 128})
	missing := filepath.Join(dir, "missing.png")
	out := filepath.Join(dir, "merged.gif")

	p := New(nil)
	err := p.Merge(Batch{Files: []string{a, missing}, Output: out})
	require.Error(t, err)

	_, statErr := os.Stat(a)
	assert.NoError(t, statErr, "assembly failure leaves every input untouched")
	_, statErr = os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestMergePDFsFailurePreservesInputs(t *testing.T) {
	dir := t.TempDir()
	bogus := filepath.Join(dir, "bogus.pdf")
	require.NoError(t, os.WriteFile(bogus, []byte("not a pdf"), 0o644))
	out := filepath.Join(dir, "merged.pdf")

	p := New(nil)
	err := p.Merge(Batch{Files: []string{bogus}, Output: out})
	require.Error(t, err)

	_, statErr := os.Stat(bogus)
	assert.NoError(t, statErr)
}

package merge

import (
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// annotationColor is the ink used to burn labels into each frame.
var annotationColor = color.RGBA{R: 200, G: 20, B: 20, A: 255}

// frameDelay is the per-frame display delay in 1/100ths of a second.
const frameDelay = 150

// mergeImages loads each raster, normalizes and annotates it, and
// assembles the frames into one multi-frame GIF in input order. Inputs are
// only deleted by the caller after the output is fully written.
func (p *Pipeline) mergeImages(b Batch) error {
	out := &gif.GIF{}
	maxW, maxH := 0, 0

	for i, path := range b.Files {
		img, err := loadImage(path)
		if err != nil {
			return err
		}
		rgba := normalize(img)
		annotate(rgba, labelAt(b.Labels, i, path), dateAt(b.Dates, i))

		frame := toPaletted(rgba)
		out.Image = append(out.Image, frame)
		out.Delay = append(out.Delay, frameDelay)
		if w := frame.Bounds().Dx(); w > maxW {
			maxW = w
		}
		if h := frame.Bounds().Dy(); h > maxH {
			maxH = h
		}
	}

	out.Config = image.Config{Width: maxW, Height: maxH}

	f, err := os.Create(b.Output)
	if err != nil {
		return fmt.Errorf("create %s: %w", b.Output, err)
	}
	if err := gif.EncodeAll(f, out); err != nil {
		f.Close()
		os.Remove(b.Output)
		return fmt.Errorf("encode %s: %w", b.Output, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", b.Output, err)
	}

	p.logger.Info("merged images", "output", b.Output, "frames", len(out.Image))
	return nil
}

func labelAt(labels []string, i int, path string) string {
	if labels != nil {
		return labels[i]
	}
	return path
}

func dateAt(dates []string, i int) string {
	if dates == nil {
		return ""
	}
	return dates[i]
}

// loadImage decodes one raster file, releasing the handle on every path.
func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// normalize applies a per-channel contrast stretch followed by gray-world
// colour correction, returning a mutable RGBA copy.
func normalize(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	stretchContrast(rgba)
	grayWorld(rgba)
	return rgba
}

// stretchContrast linearly maps each channel's observed range onto 0..255.
func stretchContrast(img *image.RGBA) {
	var lo, hi [3]int
	for c := 0; c < 3; c++ {
		lo[c], hi[c] = 255, 0
	}
	pix := img.Pix
	for i := 0; i < len(pix); i += 4 {
		for c := 0; c < 3; c++ {
			v := int(pix[i+c])
			if v < lo[c] {
				lo[c] = v
			}
			if v > hi[c] {
				hi[c] = v
			}
		}
	}
	for c := 0; c < 3; c++ {
		span := hi[c] - lo[c]
		if span <= 0 || span == 255 {
			continue
		}
		for i := c; i < len(pix); i += 4 {
			pix[i] = uint8((int(pix[i]) - lo[c]) * 255 / span)
		}
	}
}

// grayWorld scales each channel so the channel means converge on the
// overall mean, correcting a uniform colour cast.
func grayWorld(img *image.RGBA) {
	pix := img.Pix
	n := len(pix) / 4
	if n == 0 {
		return
	}
	var sum [3]int64
	for i := 0; i < len(pix); i += 4 {
		for c := 0; c < 3; c++ {
			sum[c] += int64(pix[i+c])
		}
	}
	gray := (sum[0] + sum[1] + sum[2]) / 3
	for c := 0; c < 3; c++ {
		if sum[c] == 0 {
			continue
		}
		for i := c; i < len(pix); i += 4 {
			v := int64(pix[i]) * gray / sum[c]
			if v > 255 {
				v = 255
			}
			pix[i] = uint8(v)
		}
	}
}

// annotate burns the label into the top-left and the date into the
// top-centre of the raster.
func annotate(img *image.RGBA, label, date string) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(annotationColor),
		Face: face,
	}

	if label != "" {
		drawer.Dot = fixed.P(4, face.Height)
		drawer.DrawString(label)
	}
	if date != "" {
		width := drawer.MeasureString(date).Ceil()
		x := (img.Bounds().Dx() - width) / 2
		if x < 0 {
			x = 0
		}
		drawer.Dot = fixed.P(x, face.Height)
		drawer.DrawString(date)
	}
}

// toPaletted dithers the frame onto the standard palette for GIF encoding.
func toPaletted(img *image.RGBA) *image.Paletted {
	frame := image.NewPaletted(img.Bounds(), palette.Plan9)
	draw.FloydSteinberg.Draw(frame, img.Bounds(), img, img.Bounds().Min)
	return frame
}

package thumbnail

import (
	"bytes"

	"github.com/disintegration/imaging"

	apperrors "github.com/weiawesome/pdf-thumbnail/internal/errors"
)

// Fitter shrinks rendered pages into a bounding box. A zero bound leaves
// that axis unconstrained; a nil *Fitter is a no-op.
type Fitter struct {
	maxWidth  int
	maxHeight int
}

// NewFitter returns nil when neither bound is set.
func NewFitter(maxWidth, maxHeight int) *Fitter {
	if maxWidth <= 0 && maxHeight <= 0 {
		return nil
	}
	return &Fitter{maxWidth: maxWidth, maxHeight: maxHeight}
}

// Apply decodes png, fits it into the box and re-encodes it. Images already
// inside the box are returned unchanged.
func (f *Fitter) Apply(png []byte) ([]byte, error) {
	if f == nil {
		return png, nil
	}

	img, err := imaging.Decode(bytes.NewReader(png))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindConversion, "decode rendered page")
	}

	b := img.Bounds()
	w, h := f.maxWidth, f.maxHeight
	if w <= 0 {
		w = b.Dx()
	}
	if h <= 0 {
		h = b.Dy()
	}
	if b.Dx() <= w && b.Dy() <= h {
		return png, nil
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.Fit(img, w, h, imaging.Lanczos), imaging.PNG); err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindConversion, "encode fitted page")
	}
	return buf.Bytes(), nil
}

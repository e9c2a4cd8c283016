// Package sealing turns a fully signed document into a sealed artifact:
// every signer's image is stamped onto the original PDF, the result carries
// the platform's detached signature, and a copy lands in every recipient's
// space.
package sealing

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"sealgate/internal/events"
)

// Stamper places sanitized signature images onto a PDF. Implementations
// must be all-or-nothing: any bad stamp fails the whole call.
type Stamper interface {
	Stamp(ctx context.Context, pdf []byte, stamps []events.SignatureStamp) ([]byte, error)
}

// PDFStamper renders stamps with pdfcpu, one image watermark per stamp, in
// list order.
type PDFStamper struct{}

func NewPDFStamper() *PDFStamper {
	return &PDFStamper{}
}

func (s *PDFStamper) Stamp(_ context.Context, pdf []byte, stamps []events.SignatureStamp) ([]byte, error) {
	out := pdf
	for i, st := range stamps {
		img, width, err := sanitizeImage(st.ImageBase64)
		if err != nil {
			return nil, fmt.Errorf("signature image %d (%s): %w", i, st.SignerEmail, err)
		}

		// Absolute placement from the bottom-left corner, scaled so the
		// image's rendered width matches the requested document-space width.
		scale := st.Width / float64(width)
		desc := fmt.Sprintf("pos:bl, off:%.2f %.2f, scalefactor:%.4f abs, rot:0", st.X, st.Y, scale)
		wm, err := api.ImageWatermarkForReader(bytes.NewReader(img), desc, true, false, types.POINTS)
		if err != nil {
			return nil, fmt.Errorf("build stamp %d: %w", i, err)
		}

		var buf bytes.Buffer
		pages := []string{strconv.Itoa(st.Page)}
		if err := api.AddWatermarks(bytes.NewReader(out), &buf, pages, wm, nil); err != nil {
			return nil, fmt.Errorf("apply stamp %d on page %d: %w", i, st.Page, err)
		}
		out = buf.Bytes()
	}
	return out, nil
}

// sanitizeImage decodes the base64 payload and re-encodes it through the
// canonical PNG codec. Malformed or unsupported input fails here, before
// anything is embedded in the document.
func sanitizeImage(encoded string) ([]byte, int, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, 0, fmt.Errorf("decode base64 image: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, 0, fmt.Errorf("decode image: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, 0, fmt.Errorf("re-encode image: %w", err)
	}
	return buf.Bytes(), img.Bounds().Dx(), nil
}

package artifact

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/chai2010/webp"

	apperrors "fill-nodes-go/internal/errors"
)

// Format is a supported output token. The token doubles as the file
// extension, so jpg and jpeg are kept distinct.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPG  Format = "jpg"
	FormatJPEG Format = "jpeg"
	FormatWEBP Format = "webp"
)

// Formats lists the accepted tokens in declaration order.
var Formats = []Format{FormatPNG, FormatJPG, FormatJPEG, FormatWEBP}

// ParseFormat normalizes a case-insensitive token. An empty token means png.
func ParseFormat(token string) (Format, error) {
	normalized := Format(strings.ToLower(strings.TrimSpace(token)))
	if normalized == "" {
		return FormatPNG, nil
	}
	for _, f := range Formats {
		if f == normalized {
			return f, nil
		}
	}
	return "", apperrors.NewValidationError(fmt.Sprintf("unsupported image format %q", token), nil)
}

// UsesQuality reports whether the encoder for f honors a quality setting.
func (f Format) UsesQuality() bool {
	return f != FormatPNG
}

// Encoder writes img to w. quality is already validated to [1,100];
// lossless encoders ignore it.
type Encoder interface {
	Encode(w io.Writer, img image.Image, quality int) error
}

// EncoderFunc adapts a function to Encoder.
type EncoderFunc func(w io.Writer, img image.Image, quality int) error

func (f EncoderFunc) Encode(w io.Writer, img image.Image, quality int) error {
	return f(w, img, quality)
}

func encodePNG(w io.Writer, img image.Image, _ int) error {
	return png.Encode(w, img)
}

func encodeJPEG(w io.Writer, img image.Image, quality int) error {
	return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
}

func encodeWEBP(w io.Writer, img image.Image, quality int) error {
	return webp.Encode(w, img, &webp.Options{Quality: float32(quality)})
}

// DefaultEncoders returns the stock encoder set for every Format.
func DefaultEncoders() map[Format]Encoder {
	return map[Format]Encoder{
		FormatPNG:  EncoderFunc(encodePNG),
		FormatJPG:  EncoderFunc(encodeJPEG),
		FormatJPEG: EncoderFunc(encodeJPEG),
		FormatWEBP: EncoderFunc(encodeWEBP),
	}
}

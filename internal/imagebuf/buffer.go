// Package imagebuf holds the normalized-float image tensor exchanged
// between pipeline nodes and its conversion to 8-bit Go images.
package imagebuf

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// Buffer is a height×width×channels tensor of intensities nominally in
// [0,1], stored row-major (HWC) in Pix.
type Buffer struct {
	Height   int       `json:"height"`
	Width    int       `json:"width"`
	Channels int       `json:"channels"`
	Pix      []float32 `json:"data"`
}

// New allocates a zero-filled buffer.
func New(height, width, channels int) *Buffer {
	return &Buffer{
		Height:   height,
		Width:    width,
		Channels: channels,
		Pix:      make([]float32, height*width*channels),
	}
}

// FromBatch squeezes a batch-of-one tensor (1×H×W×C) into a Buffer.
func FromBatch(batch, height, width, channels int, pix []float32) (*Buffer, error) {
	if batch != 1 {
		return nil, fmt.Errorf("expected a batch of 1 image, got %d", batch)
	}
	b := &Buffer{Height: height, Width: width, Channels: channels, Pix: pix}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

const maxInt = int(^uint(0) >> 1)

// Validate checks that the shape is encodable and matches the data length.
func (b *Buffer) Validate() error {
	if b == nil {
		return fmt.Errorf("image buffer is nil")
	}
	if b.Height <= 0 || b.Width <= 0 {
		return fmt.Errorf("invalid image size %dx%d", b.Width, b.Height)
	}
	switch b.Channels {
	case 1, 3, 4:
	default:
		return fmt.Errorf("unsupported channel count %d (want 1, 3 or 4)", b.Channels)
	}
	if b.Width > maxInt/b.Channels || b.Height > maxInt/(b.Width*b.Channels) {
		return fmt.Errorf("image size %dx%dx%d is too large", b.Height, b.Width, b.Channels)
	}
	if want := b.Height * b.Width * b.Channels; len(b.Pix) != want {
		return fmt.Errorf("pixel data has %d values, shape %dx%dx%d needs %d",
			len(b.Pix), b.Height, b.Width, b.Channels, want)
	}
	return nil
}

// At returns the value at (y, x, c).
func (b *Buffer) At(y, x, c int) float32 {
	return b.Pix[(y*b.Width+x)*b.Channels+c]
}

// Set stores v at (y, x, c).
func (b *Buffer) Set(y, x, c int, v float32) {
	b.Pix[(y*b.Width+x)*b.Channels+c] = v
}

// Fill sets every channel of every pixel to v.
func (b *Buffer) Fill(v float32) {
	for i := range b.Pix {
		b.Pix[i] = v
	}
}

// ToByte scales a normalized intensity to 0..255, clamping first and then
// truncating toward zero. NaN maps to 0.
func ToByte(v float32) uint8 {
	scaled := float64(v) * 255
	switch {
	case math.IsNaN(scaled) || scaled <= 0:
		return 0
	case scaled >= 255:
		return 255
	default:
		return uint8(scaled)
	}
}

// ToImage converts the buffer to an 8-bit image: *image.Gray for one
// channel, *image.NRGBA otherwise (opaque for three channels).
func (b *Buffer) ToImage() (image.Image, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	rect := image.Rect(0, 0, b.Width, b.Height)
	if b.Channels == 1 {
		gray := image.NewGray(rect)
		for i, v := range b.Pix {
			gray.Pix[i] = ToByte(v)
		}
		return gray, nil
	}

	img := image.NewNRGBA(rect)
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			px := color.NRGBA{
				R: ToByte(b.At(y, x, 0)),
				G: ToByte(b.At(y, x, 1)),
				B: ToByte(b.At(y, x, 2)),
				A: 255,
			}
			if b.Channels == 4 {
				px.A = ToByte(b.At(y, x, 3))
			}
			img.SetNRGBA(x, y, px)
		}
	}
	return img, nil
}

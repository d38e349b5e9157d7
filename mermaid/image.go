// ABOUTME: Best-effort raster post-processing: alpha-flatten onto white, downscale, re-encode.
// ABOUTME: Any processing fault falls back to the original bytes instead of failing the render.
package mermaid

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"
)

// maxPhotoExtent is Telegram's width+height ceiling for photo uploads.
// Captures beyond it are scaled down so the adapter never has to reject a
// successfully rendered diagram.
const maxPhotoExtent = 10000

// optimizeImage flattens transparency onto an opaque white background,
// clamps oversized captures, and re-encodes with maximum lossless
// compression. It never fails: on any fault the input bytes are returned
// unchanged.
func optimizeImage(data []byte) []byte {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return data
	}

	flat := flattenToWhite(img)
	flat = scaleToExtent(flat, maxPhotoExtent)

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, flat); err != nil {
		return data
	}
	return buf.Bytes()
}

// flattenToWhite composites the image over an opaque white background using
// its alpha channel as the blend mask. Browsers capture unpainted canvas as
// transparent pixels, which render as black in viewers that ignore alpha.
func flattenToWhite(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Over)
	return out
}

// scaleToExtent shrinks the image so width+height fits the given extent,
// preserving aspect ratio. Images already within the extent pass through.
func scaleToExtent(img *image.RGBA, extent int) *image.RGBA {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	if w+h <= extent || w == 0 || h == 0 {
		return img
	}

	factor := float64(extent) / float64(w+h)
	outW := int(float64(w) * factor)
	outH := int(float64(h) * factor)
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}

	out := image.NewRGBA(image.Rect(0, 0, outW, outH))
	draw.ApproxBiLinear.Scale(out, out.Bounds(), img, img.Bounds(), draw.Src, nil)
	return out
}

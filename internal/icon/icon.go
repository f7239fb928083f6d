// Package icon converts a PNG image into a square multi-size ICO file.
package icon

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

// Sizes are the square edge lengths stored in every generated icon.
var Sizes = []int{16, 32, 48, 256}

// BaseSize is the edge the cropped source is scaled to before the smaller
// sizes are derived from it.
const BaseSize = 256

const (
	headerLen = 6
	entryLen  = 16
)

// DefaultOutput returns input with its extension replaced by .ico.
func DefaultOutput(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".ico"
}

// Convert reads the PNG at input, center-crops it to a square, and writes an
// ICO holding Sizes to output. An empty output means DefaultOutput(input).
// It returns the path written.
func Convert(input, output string) (string, error) {
	info, err := os.Stat(input)
	if err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("not found: %s: %w", input, fs.ErrNotExist)
	}
	if output == "" {
		output = DefaultOutput(input)
	}

	f, err := os.Open(input)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", input, err)
	}
	defer f.Close()

	src, err := png.Decode(f)
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", input, err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, Scale(Square(src), BaseSize), Sizes); err != nil {
		return "", err
	}
	if err := os.WriteFile(output, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", output, err)
	}
	return output, nil
}

// Square returns the centered square of img whose edge is the smaller side.
func Square(img image.Image) image.Image {
	b := img.Bounds()
	side := min(b.Dx(), b.Dy())
	left := b.Min.X + (b.Dx()-side)/2
	top := b.Min.Y + (b.Dy()-side)/2
	rect := image.Rect(left, top, left+side, top+side)

	out := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.Draw(out, out.Bounds(), img, rect.Min, draw.Src)
	return out
}

// Scale resizes img to a size x size RGBA image with Catmull-Rom resampling.
func Scale(img image.Image, size int) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(out, out.Bounds(), img, img.Bounds(), draw.Src, nil)
	return out
}

// Encode writes an ICO container to w with one PNG-compressed image per size,
// each scaled from img.
func Encode(w io.Writer, img image.Image, sizes []int) error {
	images := make([][]byte, len(sizes))
	for i, size := range sizes {
		if size < 1 || size > 256 {
			return fmt.Errorf("icon size %d out of range", size)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, Scale(img, size)); err != nil {
			return fmt.Errorf("encoding %dx%d image: %w", size, size, err)
		}
		images[i] = buf.Bytes()
	}

	var out bytes.Buffer
	out.Write(le16(0)) // reserved
	out.Write(le16(1)) // type: icon
	out.Write(le16(uint16(len(sizes))))

	offset := headerLen + entryLen*len(sizes)
	for i, size := range sizes {
		edge := byte(size)
		if size == 256 {
			edge = 0
		}
		out.WriteByte(edge) // width
		out.WriteByte(edge) // height
		out.WriteByte(0)    // palette
		out.WriteByte(0)    // reserved
		out.Write(le16(1))  // color planes
		out.Write(le16(32)) // bits per pixel
		out.Write(le32(uint32(len(images[i]))))
		out.Write(le32(uint32(offset)))
		offset += len(images[i])
	}
	for _, data := range images {
		out.Write(data)
	}

	if _, err := w.Write(out.Bytes()); err != nil {
		return fmt.Errorf("writing icon: %w", err)
	}
	return nil
}

func le16(v uint16) []byte { return binary.LittleEndian.AppendUint16(nil, v) }
func le32(v uint32) []byte { return binary.LittleEndian.AppendUint32(nil, v) }

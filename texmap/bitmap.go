package texmap

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/h2non/filetype"
	"github.com/mrjoshuak/go-openexr/exr"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var ErrUnsupportedImage = errors.New("unsupported image format")

// Bitmap describes image data loaded for a bitmap texture.
type Bitmap struct {
	Path string
	// Format is the image format detected from the file contents, i.e. "png" or "exr".
	Format        string
	Width, Height int
	// Linear is set for floating point formats, which store linear color values.
	Linear bool
}

// headerSize is enough for content sniffing.
const headerSize = 262

var (
	exrMagic  = []byte{0x76, 0x2f, 0x31, 0x01}
	hdrMagic  = []byte("#?RADIANCE")
	rgbeMagic = []byte("#?RGBE")
)

// LoadBitmap reads the header of the image at path. EXR and Radiance HDR images
// are linear; every other format decodable by the image package is gamma encoded.
func LoadBitmap(path string) (*Bitmap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	b, err := decodeBitmap(f, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	b.Path = path
	return b, nil
}

func decodeBitmap(r io.ReadSeeker, path string) (*Bitmap, error) {
	head := make([]byte, headerSize)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	head = head[:n]
	switch {
	case bytes.HasPrefix(head, exrMagic):
		return exrBitmap(path)
	case bytes.HasPrefix(head, hdrMagic), bytes.HasPrefix(head, rgbeMagic):
		w, h, err := hdrSize(r)
		if err != nil {
			return nil, err
		}
		return &Bitmap{Format: "hdr", Width: w, Height: h, Linear: true}, nil
	}
	if !filetype.IsImage(head) {
		return nil, ErrUnsupportedImage
	}
	kind, _ := filetype.Match(head)
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedImage, kind.Extension, err)
	}
	return &Bitmap{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// exrBitmap reads the data window of the first part of an OpenEXR file.
func exrBitmap(path string) (*Bitmap, error) {
	f, err := exr.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: exr: %v", ErrUnsupportedImage, err)
	}
	defer f.Close()
	h := f.Header(0)
	if h == nil {
		return nil, fmt.Errorf("%w: exr: missing header", ErrUnsupportedImage)
	}
	dw := h.DataWindow()
	return &Bitmap{Format: "exr", Width: int(dw.Width()), Height: int(dw.Height()), Linear: true}, nil
}

// hdrSize reads the resolution line of a Radiance HDR header.
func hdrSize(r io.ReadSeeker) (w, h int, err error) {
	if _, err = r.Seek(0, io.SeekStart); err != nil {
		return 0, 0, err
	}
	br := newByteReader(r)
	for i := 0; i < 64; i++ {
		line, err := br.line()
		if err != nil {
			return 0, 0, err
		}
		var sy, sx string
		if n, _ := fmt.Sscanf(line, "%s %d %s %d", &sy, &h, &sx, &w); n == 4 {
			return w, h, nil
		}
	}
	return 0, 0, errors.New("hdr: missing resolution line")
}

type byteReader struct {
	r   io.Reader
	buf [1]byte
}

func newByteReader(r io.Reader) *byteReader { return &byteReader{r: r} }

func (br *byteReader) ReadByte() (byte, error) {
	_, err := io.ReadFull(br.r, br.buf[:])
	return br.buf[0], err
}

func (br *byteReader) readUntil(delim byte) (string, error) {
	var b []byte
	for len(b) < 256 {
		c, err := br.ReadByte()
		if err != nil {
			return "", err
		}
		if c == delim {
			return string(b), nil
		}
		b = append(b, c)
	}
	return "", errors.New("header token too long")
}

func (br *byteReader) line() (string, error) { return br.readUntil('\n') }

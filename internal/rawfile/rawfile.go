// Package rawfile reads and writes raw data word streams. A raw file is a
// sequence of little-endian uint32 words with no framing; files ending in
// .zst are zstd-compressed.
package rawfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// DefaultChunkSize is the number of words delivered per read chunk.
const DefaultChunkSize = 1 << 20

// Reader streams words out of a raw file.
type Reader struct {
	f   *os.File
	zr  *zstd.Decoder
	src io.Reader
	buf []byte
}

// Open opens a raw file for reading. Compression is detected from the
// file name suffix.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open raw file: %w", err)
	}

	r := &Reader{f: f, src: f}
	if strings.HasSuffix(path, ".zst") {
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to open zstd stream: %w", err)
		}
		r.zr = zr
		r.src = zr
	}
	return r, nil
}

// Read fills words with the next words from the stream and returns the
// number of words read. It returns io.EOF once the stream is exhausted.
// A trailing partial word is a format error.
func (r *Reader) Read(words []uint32) (int, error) {
	need := len(words) * 4
	if cap(r.buf) < need {
		r.buf = make([]byte, need)
	}
	buf := r.buf[:need]

	n, err := io.ReadFull(r.src, buf)
	if err == io.ErrUnexpectedEOF {
		if n%4 != 0 {
			return 0, fmt.Errorf("raw file truncated mid-word (%d trailing bytes)", n%4)
		}
		err = nil
		if n == 0 {
			return 0, io.EOF
		}
	}
	if err != nil {
		return 0, err
	}

	for i := 0; i < n/4; i++ {
		words[i] = binary.LittleEndian.Uint32(buf[i*4:])
	}
	return n / 4, nil
}

// ReadAll reads the remaining words of the stream into memory.
func (r *Reader) ReadAll() ([]uint32, error) {
	var all []uint32
	chunk := make([]uint32, DefaultChunkSize)
	for {
		n, err := r.Read(chunk)
		all = append(all, chunk[:n]...)
		if err == io.EOF {
			return all, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// Close releases the underlying file and decoder.
func (r *Reader) Close() error {
	if r.zr != nil {
		r.zr.Close()
	}
	return r.f.Close()
}

// Writer streams words into a raw file.
type Writer struct {
	f   *os.File
	zw  *zstd.Encoder
	dst io.Writer
	buf []byte
}

// Create creates a raw file for writing, truncating any existing file.
// A .zst suffix selects zstd compression.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create raw file: %w", err)
	}

	w := &Writer{f: f, dst: f}
	if strings.HasSuffix(path, ".zst") {
		zw, err := zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create zstd stream: %w", err)
		}
		w.zw = zw
		w.dst = zw
	}
	return w, nil
}

// Write appends words to the stream.
func (w *Writer) Write(words []uint32) error {
	need := len(words) * 4
	if cap(w.buf) < need {
		w.buf = make([]byte, need)
	}
	buf := w.buf[:need]

	for i, word := range words {
		binary.LittleEndian.PutUint32(buf[i*4:], word)
	}
	if _, err := w.dst.Write(buf); err != nil {
		return fmt.Errorf("failed to write raw words: %w", err)
	}
	return nil
}

// Close flushes the stream and closes the file.
func (w *Writer) Close() error {
	if w.zw != nil {
		if err := w.zw.Close(); err != nil {
			w.f.Close()
			return fmt.Errorf("failed to finish zstd stream: %w", err)
		}
	}
	return w.f.Close()
}

package gnbt

import (
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"

	"github.com/NaughtyChas/GitMC/internal/coreerr"
)

// CompressionMode selects the wire compression used when writing an NBT
// blob, mirroring the Anvil chunk compression tag values so the same
// constants serve both a standalone .dat/.nbt file and a region chunk
// payload.
type CompressionMode byte

const (
	CompressionGZip         CompressionMode = 1
	CompressionZlib         CompressionMode = 2
	CompressionUncompressed CompressionMode = 3
	CompressionLZ4          CompressionMode = 4
	CompressionCustom       CompressionMode = 127
)

// sniffKind classifies the first byte of an uncompressed-or-not blob.
type sniffKind int

const (
	sniffGZip sniffKind = iota
	sniffZlib
	sniffUncompressedCompound
	sniffUncompressedList
	sniffUnknown
)

func sniff(b byte) sniffKind {
	switch b {
	case 0x1F:
		return sniffGZip
	case 0x78:
		return sniffZlib
	case 0x0A:
		return sniffUncompressedCompound
	case 0x08:
		return sniffUncompressedList
	default:
		return sniffUnknown
	}
}

// decompressingReader returns a reader over the decompressed form of r,
// having sniffed the compression from its first byte. For a caller that
// already knows the desired decompression (e.g. a region chunk, which
// carries an explicit tag), use DecompressReader instead.
func decompressingReader(r *bufferedPeeker) (io.Reader, error) {
	first, err := r.Peek1()
	if err != nil {
		return nil, coreerr.Wrapf(coreerr.Format, err, "cannot sniff NBT stream")
	}
	switch sniff(first) {
	case sniffGZip:
		return gzip.NewReader(r)
	case sniffZlib:
		return zlib.NewReader(r)
	case sniffUncompressedCompound:
		return r, nil
	case sniffUncompressedList:
		return nil, coreerr.New(coreerr.Format, "", "root is an uncompressed List, not a Compound", nil)
	default:
		return nil, coreerr.New(coreerr.Format, "", fmt.Sprintf("unknown NBT stream header byte 0x%02x", first), nil)
	}
}

// bufferedPeeker lets us look at the first byte of a stream without
// consuming it, without requiring bufio.Reader at every call site.
type bufferedPeeker struct {
	buf []byte
	r   io.Reader
	at  int
}

func newPeeker(r io.Reader) *bufferedPeeker {
	return &bufferedPeeker{r: r}
}

func (p *bufferedPeeker) Peek1() (byte, error) {
	if len(p.buf) == 0 {
		b := make([]byte, 1)
		if _, err := io.ReadFull(p.r, b); err != nil {
			return 0, err
		}
		p.buf = b
	}
	return p.buf[0], nil
}

func (p *bufferedPeeker) Read(b []byte) (int, error) {
	if len(p.buf) > 0 {
		n := copy(b, p.buf[p.at:])
		p.at += n
		if p.at >= len(p.buf) {
			p.buf = nil
			p.at = 0
		}
		if n > 0 {
			return n, nil
		}
	}
	return p.r.Read(b)
}

// DecompressReader wraps r with the decompression indicated by an explicit
// Anvil chunk compression tag (the low 7 bits of the on-wire byte; the
// high bit, external-file indirection, is handled by the Anvil codec).
func DecompressReader(r io.Reader, mode CompressionMode) (io.ReadCloser, error) {
	switch mode {
	case CompressionGZip:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, coreerr.Wrapf(coreerr.Integrity, err, "gzip decompression failed")
		}
		return gr, nil
	case CompressionZlib:
		zr, err := zlib.NewReader(r)
		if err != nil {
			return nil, coreerr.Wrapf(coreerr.Integrity, err, "zlib decompression failed")
		}
		return io.NopCloser(zr), nil
	case CompressionUncompressed:
		return io.NopCloser(r), nil
	case CompressionLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	default:
		return nil, coreerr.New(coreerr.Integrity, "", fmt.Sprintf("unsupported compression tag %d", mode), nil)
	}
}

// CompressWriter wraps w with the compression indicated by mode.
func CompressWriter(w io.Writer, mode CompressionMode) (io.WriteCloser, error) {
	switch mode {
	case CompressionGZip:
		return gzip.NewWriter(w), nil
	case CompressionZlib:
		return zlib.NewWriter(w), nil
	case CompressionUncompressed:
		return nopWriteCloser{w}, nil
	case CompressionLZ4:
		return lz4.NewWriter(w), nil
	default:
		return nil, coreerr.New(coreerr.Integrity, "", fmt.Sprintf("unsupported compression tag %d", mode), nil)
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

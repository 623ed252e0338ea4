package sharefile

import (
	"bufio"
	"crypto/md5" //nolint:gosec // the upload protocol mandates MD5
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
)

// DefaultChunkSize is the chunk size used when none is configured (8 MiB).
const DefaultChunkSize = 8 << 20

// ErrNotSeekable is returned by Chunker.Reset when the stream cannot be
// rewound.
var ErrNotSeekable = errors.New("sharefile: upload stream is not seekable")

// Chunk is one slice of an upload stream.
type Chunk struct {
	Index  int
	Offset int64 // always Index * chunk size
	Data   []byte
	Hash   string // hex MD5 of Data
	Final  bool
}

// Chunker splits a stream into fixed-size chunks on demand. A stream of S
// bytes yields ceil(S/C) chunks, or one empty final chunk when S is zero.
// Not safe for concurrent use.
type Chunker struct {
	src      io.Reader
	r        *bufio.Reader
	size     int
	index    int
	done     bool
	fileHash hash.Hash
}

// NewChunker returns a Chunker reading r in chunks of size bytes.
// size <= 0 selects DefaultChunkSize.
func NewChunker(r io.Reader, size int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}

	return &Chunker{
		src:      r,
		r:        bufio.NewReader(r),
		size:     size,
		fileHash: md5.New(), //nolint:gosec // protocol checksum
	}
}

// Size returns the chunk size.
func (c *Chunker) Size() int {
	return c.size
}

// Next returns the next chunk, or io.EOF after the final chunk. Partial
// reads are retried until the chunk is full or the stream ends. Read
// failures are returned as *StreamReadError.
func (c *Chunker) Next() (*Chunk, error) {
	if c.done {
		return nil, io.EOF
	}

	buf := make([]byte, c.size)

	n, err := io.ReadFull(c.r, buf)

	final := false

	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		final = true
	case err != nil:
		c.done = true

		return nil, &StreamReadError{Index: c.index, Err: err}
	default:
		// Full chunk: the stream ends here iff nothing follows.
		if _, peekErr := c.r.Peek(1); peekErr != nil {
			if !errors.Is(peekErr, io.EOF) {
				c.done = true

				return nil, &StreamReadError{Index: c.index, Err: peekErr}
			}

			final = true
		}
	}

	data := buf[:n]
	c.fileHash.Write(data)

	sum := md5.Sum(data) //nolint:gosec // protocol checksum

	chunk := &Chunk{
		Index:  c.index,
		Offset: int64(c.index) * int64(c.size),
		Data:   data,
		Hash:   hex.EncodeToString(sum[:]),
		Final:  final,
	}

	c.index++
	c.done = final

	return chunk, nil
}

// FileHash returns the hex MD5 of every byte returned so far. After the
// final chunk it is the hash of the whole stream.
func (c *Chunker) FileHash() string {
	return hex.EncodeToString(c.fileHash.Sum(nil))
}

// Reset rewinds a seekable stream so the sequence can be produced again.
func (c *Chunker) Reset() error {
	seeker, ok := c.src.(io.Seeker)
	if !ok {
		return ErrNotSeekable
	}

	if _, err := seeker.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("sharefile: rewinding upload stream: %w", err)
	}

	c.r.Reset(c.src)
	c.index = 0
	c.done = false
	c.fileHash.Reset()

	return nil
}

package sharefile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// UploadMethod selects the upload protocol.
type UploadMethod string

// Upload methods understood by the Upload endpoint.
const (
	UploadMethodStandard UploadMethod = "standard"
	UploadMethodStreamed UploadMethod = "streamed"
)

// chunkAccepted is the body the service returns for every accepted
// non-final chunk.
const chunkAccepted = "true"

// standardFormField is the multipart field name of a standard upload.
const standardFormField = "File1"

// ErrNoChunkURI is returned when the upload specification has no ChunkUri.
var ErrNoChunkURI = errors.New("sharefile: upload specification has no chunk URI")

// UploadOptions control an upload.
type UploadOptions struct {
	Unzip     bool // extract a zip upload into the target folder
	Overwrite bool
	Notify    bool
	ChunkSize int // streamed uploads only; <= 0 selects DefaultChunkSize

	// Progress, when set, is called after each accepted chunk with the bytes
	// sent so far and the expected total (0 when unknown).
	Progress func(sent, total int64)
}

// DefaultUploadOptions overwrites existing files, notifies and uses 8 MiB
// chunks.
func DefaultUploadOptions() UploadOptions {
	return UploadOptions{
		Overwrite: true,
		Notify:    true,
		ChunkSize: DefaultChunkSize,
	}
}

// GetChunkURI requests an upload specification for a file named info.Name
// in folderID.
func (c *Client) GetChunkURI(
	ctx context.Context, method UploadMethod, folderID string, info FileInfo, opts UploadOptions,
) (*UploadSpecification, error) {
	c.logger.Debug("requesting upload specification",
		slog.String("method", string(method)),
		slog.String("folder_id", folderID),
		slog.String("name", info.Name),
		slog.Int64("size", info.Size),
	)

	q := new(Query).
		Set("method", string(method)).
		Set("raw", method == UploadMethodStreamed).
		Set("fileName", info.Name).
		Set("fileSize", info.Size).
		Set("canResume", false).
		Set("startOver", false).
		Set("unzip", opts.Unzip).
		Set("tool", "apiv3").
		Set("overwrite", opts.Overwrite).
		Set("title", info.Name).
		Set("isSend", false).
		Set("responseFormat", "json").
		Set("notify", opts.Notify).
		Set("clientCreatedDateUTC", info.Created).
		Set("clientModifiedDateUTC", info.Modified)

	spec, err := decodeInto[UploadSpecification](c.post(ctx, withQuery(fmt.Sprintf("Items(%s)/Upload", folderID), q), nil))
	if err != nil {
		return nil, err
	}

	if spec.ChunkURI == "" {
		return nil, ErrNoChunkURI
	}

	return spec, nil
}

// prepareUpload resolves the file metadata and upload specification.
func (c *Client) prepareUpload(
	ctx context.Context, method UploadMethod, r io.Reader, folderID, filename string, opts UploadOptions,
) (FileInfo, *UploadSpecification, error) {
	info := describeSource(r, c.nowFunc())

	name, err := resolveFilename(filename, info)
	if err != nil {
		return info, nil, err
	}

	info.Name = name

	spec, err := c.GetChunkURI(ctx, method, folderID, info, opts)
	if err != nil {
		return info, nil, err
	}

	return info, spec, nil
}

// ErrChunkRejected marks a streamed upload that ended early because the
// service answered a non-final chunk with something other than "true".
var ErrChunkRejected = errors.New("sharefile: chunk rejected")

// UploadResult is the outcome of a streamed upload.
type UploadResult struct {
	Body     string // response body of the last chunk sent
	Complete bool   // false when a non-final chunk was rejected
	Chunks   int    // chunk requests sent
}

// UploadStreamed uploads r into folderID chunk by chunk and returns the
// final chunk's response body. filename may be empty when r is a named
// file. A non-final chunk answered with anything other than "true" ends
// the upload and that body is returned. Failed chunks are not retried.
// Use UploadStreamedResult to tell a rejected upload from a finished one.
func (c *Client) UploadStreamed(
	ctx context.Context, r io.Reader, folderID, filename string, opts UploadOptions,
) (string, error) {
	res, err := c.UploadStreamedResult(ctx, r, folderID, filename, opts)
	if err != nil {
		return "", err
	}

	return res.Body, nil
}

// UploadStreamedResult is UploadStreamed reporting whether the final chunk
// was reached. Progress is only reported for accepted chunks.
func (c *Client) UploadStreamedResult(
	ctx context.Context, r io.Reader, folderID, filename string, opts UploadOptions,
) (*UploadResult, error) {
	uploadID := uuid.NewString()

	info, spec, err := c.prepareUpload(ctx, UploadMethodStreamed, r, folderID, filename, opts)
	if err != nil {
		return nil, err
	}

	chunker := NewChunker(r, opts.ChunkSize)

	c.logger.Info("starting streamed upload",
		slog.String("upload_id", uploadID),
		slog.String("folder_id", folderID),
		slog.String("name", info.Name),
		slog.Int64("size", info.Size),
		slog.Int("chunk_size", chunker.Size()),
	)

	var sent int64

	for {
		chunk, err := chunker.Next()
		if err != nil {
			c.logger.Error("reading upload stream failed",
				slog.String("upload_id", uploadID),
				slog.String("error", err.Error()),
			)

			return nil, err
		}

		q := new(Query).
			Set("index", chunk.Index).
			Set("byteOffset", chunk.Offset).
			Set("hash", chunk.Hash)

		if chunk.Final {
			q.Set("filehash", chunker.FileHash()).
				Set("finish", true)
		}

		c.logger.Debug("uploading chunk",
			slog.String("upload_id", uploadID),
			slog.Int("index", chunk.Index),
			slog.Int64("offset", chunk.Offset),
			slog.Int("bytes", len(chunk.Data)),
			slog.Bool("final", chunk.Final),
		)

		resp, err := c.doURL(ctx, http.MethodPost, appendQuery(spec.ChunkURI, q),
			"application/octet-stream", bytes.NewReader(chunk.Data), int64(len(chunk.Data)))
		if err != nil {
			return nil, fmt.Errorf("sharefile: uploading chunk %d: %w", chunk.Index, err)
		}

		res := &UploadResult{Body: resp.Text(), Chunks: chunk.Index + 1}

		if !chunk.Final && res.Body != chunkAccepted {
			c.logger.Warn("chunk not accepted, ending upload",
				slog.String("upload_id", uploadID),
				slog.Int("index", chunk.Index),
			)

			return res, nil
		}

		sent += int64(len(chunk.Data))
		if opts.Progress != nil {
			opts.Progress(sent, info.Size)
		}

		if chunk.Final {
			c.logger.Info("streamed upload complete",
				slog.String("upload_id", uploadID),
				slog.Int("chunks", res.Chunks),
				slog.Int64("bytes", sent),
			)

			res.Complete = true

			return res, nil
		}
	}
}

// UploadStandard uploads r into folderID with a single multipart POST and
// returns the response body.
func (c *Client) UploadStandard(
	ctx context.Context, r io.Reader, folderID, filename string, opts UploadOptions,
) (string, error) {
	info, spec, err := c.prepareUpload(ctx, UploadMethodStandard, r, folderID, filename, opts)
	if err != nil {
		return "", err
	}

	c.logger.Info("starting standard upload",
		slog.String("folder_id", folderID),
		slog.String("name", info.Name),
		slog.Int64("size", info.Size),
	)

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeMultipartFile(mw, info.Name, r))
	}()

	resp, err := c.doURL(ctx, http.MethodPost, spec.ChunkURI, mw.FormDataContentType(), pr, -1)
	if err != nil {
		pr.CloseWithError(err)

		var readErr *StreamReadError
		if errors.As(err, &readErr) {
			return "", readErr
		}

		return "", fmt.Errorf("sharefile: standard upload: %w", err)
	}

	c.logger.Info("standard upload complete", slog.String("name", info.Name))

	return resp.Text(), nil
}

// writeMultipartFile writes r as the single file part of a standard upload
// and closes the form.
func writeMultipartFile(mw *multipart.Writer, name string, r io.Reader) error {
	part, err := mw.CreateFormFile(standardFormField, name)
	if err != nil {
		return err
	}

	if _, err := io.Copy(part, r); err != nil {
		return &StreamReadError{Index: 0, Err: err}
	}

	return mw.Close()
}

// appendQuery extends an absolute URL that may already carry a query.
func appendQuery(rawURL string, q *Query) string {
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}

	return rawURL + sep + q.Encode()
}

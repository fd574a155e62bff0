package driver

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression selects the codec NDJSONEncoder applies to an encoded batch
// body, mirroring the compression knobs most of vector's sinks expose.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

// NDJSONEncoder encodes a Batch as newline-delimited JSON, one line per
// event in event.Event's JSON wire shape (kind, payload, source id and
// ingest time), optionally compressed. This is the
// default Encoder for sinks that accept line-delimited JSON (the vast
// majority of HTTP log/metric destinations).
type NDJSONEncoder struct {
	Compression Compression
}

func (e NDJSONEncoder) Encode(batch Batch) (Request, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range batch.Events {
		if err := enc.Encode(batch.Events[i]); err != nil {
			return Request{}, fmt.Errorf("encode event %d: %w", i, err)
		}
	}

	body, contentEncoding, err := compress(buf.Bytes(), e.Compression)
	if err != nil {
		return Request{}, err
	}

	md := map[string]string{"content-type": "application/x-ndjson"}
	if contentEncoding != "" {
		md["content-encoding"] = contentEncoding
	}
	return Request{PartitionKey: batch.Key, Body: body, Metadata: md}, nil
}

func compress(body []byte, c Compression) ([]byte, string, error) {
	switch c {
	case "", CompressionNone:
		return body, "", nil
	case CompressionGzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(body); err != nil {
			return nil, "", err
		}
		if err := w.Close(); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "gzip", nil
	case CompressionZstd:
		var buf bytes.Buffer
		w, err := zstd.NewWriter(&buf)
		if err != nil {
			return nil, "", err
		}
		if _, err := w.Write(body); err != nil {
			return nil, "", err
		}
		if err := w.Close(); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "zstd", nil
	default:
		return nil, "", fmt.Errorf("unknown compression %q", c)
	}
}


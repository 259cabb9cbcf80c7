package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"strings"
)

const (
	readBufferSize = 32 << 10
	// maxPending bounds the bytes held back while waiting for the rest of
	// a JSON object split across reads.
	maxPending = 1 << 20
)

// chunkedJSON speaks the Claude wire format: the response body is a series
// of JSON objects, each carrying a content field.
type chunkedJSON struct {
	httpStreamer
}

func (c *chunkedJSON) Stream(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		resp, err := c.open(ctx, req, false, func(h http.Header) {
			h.Set("x-api-key", c.settings.APIKey)
			h.Set("anthropic-version", "2023-06-01")
		})
		if err != nil {
			yield("", err)
			return
		}
		defer resp.Body.Close()

		dec := &chunkDecoder{logger: c.logger}
		buf := make([]byte, readBufferSize)
		for {
			n, readErr := resp.Body.Read(buf)
			if n > 0 {
				for _, fragment := range dec.feed(buf[:n]) {
					if !yield(fragment, nil) {
						return
					}
				}
			}
			if errors.Is(readErr, io.EOF) {
				dec.finish()
				return
			}
			if readErr != nil {
				yield("", c.transportError(ctx, readErr))
				return
			}
		}
	}
}

// chunkDecoder extracts content fragments from body reads. Objects may span
// reads or share one; an incomplete trailing object is held back until the
// next read. Unparseable input is logged and dropped.
type chunkDecoder struct {
	pending []byte
	logger  *slog.Logger
}

func (d *chunkDecoder) feed(chunk []byte) []string {
	hadPending := len(d.pending) > 0

	// A read that holds complete objects of its own starts fresh; whatever
	// was held back was a truncated chunk.
	if hadPending && bytes.HasPrefix(bytes.TrimSpace(chunk), []byte("{")) {
		if fragments, consumed, err := d.decode(chunk); err == nil && consumed > 0 {
			d.logger.Warn("incomplete chunk superseded, skipping", "bytes", len(d.pending))
			d.hold(chunk[consumed:])
			return fragments
		}
	}
	data := append(d.pending, chunk...)

	fragments, consumed, err := d.decode(data)
	if err == nil {
		d.hold(data[consumed:])
		return fragments
	}

	d.logger.Warn("error parsing chunk, skipping", "error", err, "bytes", len(data)-consumed)
	d.pending = nil

	// Held-back bytes that never completed must not poison a fresh object.
	if hadPending && consumed == 0 {
		fragments, consumed, err = d.decode(chunk)
		if err != nil {
			d.logger.Warn("error parsing chunk, skipping", "error", err, "bytes", len(chunk)-consumed)
			return fragments
		}
		d.hold(chunk[consumed:])
	}
	return fragments
}

func (d *chunkDecoder) hold(rest []byte) {
	rest = bytes.TrimSpace(rest)
	if len(rest) > maxPending {
		d.logger.Warn("incomplete chunk too large, dropping", "bytes", len(rest))
		rest = nil
	}
	d.pending = append([]byte(nil), rest...)
}

func (d *chunkDecoder) finish() {
	if len(d.pending) > 0 {
		d.logger.Warn("stream ended inside a chunk, dropping it", "bytes", len(d.pending))
		d.pending = nil
	}
}

// decode reads consecutive JSON values from data. It stops without error at
// an incomplete trailing value and reports how many bytes were consumed.
func (d *chunkDecoder) decode(data []byte) ([]string, int, error) {
	var fragments []string
	dec := json.NewDecoder(bytes.NewReader(data))
	consumed := 0
	for {
		var raw json.RawMessage
		err := dec.Decode(&raw)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fragments, consumed, nil
		}
		if err != nil {
			return fragments, consumed, err
		}
		consumed = int(dec.InputOffset())

		text, err := contentText(raw)
		if err != nil {
			d.logger.Warn("error parsing chunk, skipping", "error", err)
			continue
		}
		if text != "" {
			fragments = append(fragments, text)
		}
	}
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// contentText returns the content of one chunk. Content is either a string
// or a list of blocks whose text is concatenated.
func contentText(raw json.RawMessage) (string, error) {
	var chunk struct {
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(raw, &chunk); err != nil {
		return "", err
	}
	if len(chunk.Content) == 0 || string(chunk.Content) == "null" {
		return "", nil
	}

	var text string
	if err := json.Unmarshal(chunk.Content, &text); err == nil {
		return text, nil
	}

	var blocks []contentBlock
	if err := json.Unmarshal(chunk.Content, &blocks); err != nil {
		return "", err
	}
	var b strings.Builder
	for _, block := range blocks {
		if block.Type == "" || block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}

package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"net/http"
	"strings"
)

const (
	dataPrefix = "data: "
	doneMarker = "[DONE]"
)

// eventStream speaks the OpenAI wire format: server-sent events whose data
// lines carry partial deltas.
type eventStream struct {
	httpStreamer
}

type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func (e *eventStream) Stream(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		resp, err := e.open(ctx, req, true, func(h http.Header) {
			h.Set("Authorization", "Bearer "+e.settings.APIKey)
		})
		if err != nil {
			yield("", err)
			return
		}
		defer resp.Body.Close()

		reader := bufio.NewReaderSize(resp.Body, readBufferSize)
		for {
			line, readErr := reader.ReadString('\n')
			if readErr != nil {
				if errors.Is(readErr, io.EOF) {
					if strings.TrimSpace(line) != "" {
						e.logger.Debug("stream ended without newline, dropping partial line", "bytes", len(line))
					}
					return
				}
				yield("", e.transportError(ctx, readErr))
				return
			}

			fragment, ok := e.parseLine(line)
			if ok && !yield(fragment, nil) {
				return
			}
		}
	}
}

// parseLine returns the delta carried by one complete line, if any.
func (e *eventStream) parseLine(line string) (string, bool) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" || !strings.HasPrefix(line, dataPrefix) {
		return "", false
	}

	payload := strings.TrimPrefix(line, dataPrefix)
	if payload == doneMarker {
		return "", false
	}

	var chunk chatCompletionChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		e.logger.Warn("error parsing event data, skipping", "error", err, "line", line)
		return "", false
	}
	if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
		return "", false
	}
	return chunk.Choices[0].Delta.Content, true
}

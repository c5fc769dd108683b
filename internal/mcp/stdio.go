package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// maxMessage bounds one newline-delimited message.
const maxMessage = 16 << 20

// ServeStdio reads one JSON-RPC message per line from r and writes each
// response as one line to w. Requests are handled in order. It returns nil
// at end of input and ctx.Err() when ctx is canceled between messages.
func ServeStdio(ctx context.Context, h *Handler, r io.Reader, w io.Writer) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxMessage)
	out := &lineWriter{w: w}

	logger.Info("serving on stdio", "tools", len(h.reg.List()))
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		resp, ok := handleMessage(ctx, h, line)
		if !ok {
			continue
		}
		if err := out.write(resp); err != nil {
			return fmt.Errorf("writing response: %w", err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading requests: %w", err)
	}
	logger.Info("stdin closed")
	return nil
}

func handleMessage(ctx context.Context, h *Handler, msg []byte) (Response, bool) {
	var req Request
	if err := json.Unmarshal(msg, &req); err != nil {
		return errResponse(nil, CodeParseError, err.Error()), true
	}
	return h.Dispatch(ctx, req)
}

type lineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lineWriter) write(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.w.Write(append(b, '\n'))
	return err
}

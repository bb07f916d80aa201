package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/bronystylecrazy/metaroute/fault"
	"github.com/gofiber/fiber/v3"
)

var ErrAlreadySent = errors.New("response already sent")

type writeKind int

const (
	writeNone writeKind = iota
	writeJSON
	writeRedirect
	writeStatus
)

// Writer buffers the first response the pipeline commits and replays it on
// the fiber context in Flush. Writes after Flush are dropped.
type Writer struct {
	mu       sync.Mutex
	status   int
	kind     writeKind
	body     []byte
	location string
	flushed  bool
}

func NewWriter() *Writer {
	return &Writer{status: http.StatusOK}
}

func (w *Writer) Status(code int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.kind == writeNone && !w.flushed {
		w.status = code
	}
}

func (w *Writer) JSON(v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.commit(writeJSON, 0, body, "")
}

func (w *Writer) Redirect(url string, code int) error {
	return w.commit(writeRedirect, code, nil, url)
}

func (w *Writer) SendStatus(code int) error {
	return w.commit(writeStatus, code, nil, "")
}

func (w *Writer) commit(kind writeKind, code int, body []byte, location string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.kind != writeNone || w.flushed {
		return ErrAlreadySent
	}
	w.kind = kind
	if code != 0 {
		w.status = code
	}
	w.body = body
	w.location = location
	return nil
}

func (w *Writer) Sent() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.kind != writeNone || w.flushed
}

// Flush writes the buffered response to c. When nothing was committed a 500
// JSON body is written.
func (w *Writer) Flush(c fiber.Ctx) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.flushed = true

	switch w.kind {
	case writeRedirect:
		return c.Redirect().Status(w.status).To(w.location)
	case writeStatus:
		return c.SendStatus(w.status)
	case writeJSON:
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Status(w.status).Send(w.body)
	default:
		return c.Status(http.StatusInternalServerError).JSON(fault.Body(fault.Internal(errors.New("no response was written"))))
	}
}

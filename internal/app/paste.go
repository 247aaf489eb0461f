package app

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"
)

// Terminal bracketed paste delimiters.
var (
	pasteBegin = []byte("\x1b[200~")
	pasteEnd   = []byte("\x1b[201~")
)

// Pastes longer than this, or containing newlines, are replaced with a
// placeholder on the readline prompt and expanded again before dispatch.
const inlinePasteLimit = 80

// pasteReader wraps stdin for readline and intercepts bracketed pastes.
// Short single-line pastes pass through untouched; anything larger is
// held aside and shown as "[pasted N lines (#i)]" so a multi-paragraph
// prompt does not turn into several readline submissions.
type pasteReader struct {
	mu       sync.Mutex
	src      io.ReadCloser
	out      bytes.Buffer
	pending  bytes.Buffer
	partial  []byte
	pasting  bool
	segments []string
}

func newPasteReader(src io.ReadCloser) *pasteReader {
	return &pasteReader{src: src}
}

func (r *pasteReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	if r.out.Len() > 0 {
		n, err := r.out.Read(p)
		r.mu.Unlock()
		return n, err
	}
	r.mu.Unlock()

	buf := make([]byte, 4096)
	n, err := r.src.Read(buf)
	if n == 0 {
		return 0, err
	}

	r.mu.Lock()
	r.scan(buf[:n])
	nn, _ := r.out.Read(p)
	r.mu.Unlock()
	if nn > 0 {
		return nn, nil
	}
	if err != nil {
		return 0, err
	}
	// The whole read went into a still-open paste; keep reading.
	return r.Read(p)
}

func (r *pasteReader) Close() error { return r.src.Close() }

// takeSegments returns held paste contents, clearing them. Segment i
// corresponds to the "#i" placeholder on the current line.
func (r *pasteReader) takeSegments() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	segs := r.segments
	r.segments = nil
	return segs
}

// scan routes data to the readline buffer or the paste buffer, tracking
// delimiter sequences that may be split across reads. Caller holds mu.
func (r *pasteReader) scan(data []byte) {
	if len(r.partial) > 0 {
		data = append(append([]byte{}, r.partial...), data...)
		r.partial = nil
	}

	for len(data) > 0 {
		delim := pasteBegin
		sink := &r.out
		if r.pasting {
			delim = pasteEnd
			sink = &r.pending
		}

		if idx := bytes.Index(data, delim); idx >= 0 {
			sink.Write(data[:idx])
			data = data[idx+len(delim):]
			if r.pasting {
				r.flushPaste()
			} else {
				r.pending.Reset()
			}
			r.pasting = !r.pasting
			continue
		}

		if keep := trailingDelimPrefix(data, delim); keep > 0 {
			sink.Write(data[:len(data)-keep])
			r.partial = append(r.partial, data[len(data)-keep:]...)
		} else {
			sink.Write(data)
		}
		return
	}
}

// flushPaste decides whether the completed paste goes inline or becomes a
// placeholder. Caller holds mu.
func (r *pasteReader) flushPaste() {
	text := r.pending.String()
	r.pending.Reset()
	if text == "" {
		return
	}

	lines := strings.Count(text, "\n")
	if lines == 0 && utf8.RuneCountInString(text) <= inlinePasteLimit {
		r.out.WriteString(text)
		return
	}

	idx := len(r.segments)
	r.segments = append(r.segments, text)
	fmt.Fprintf(&r.out, "[pasted %d lines (#%d)]", lines+1, idx)
}

// expandPastes substitutes held segments back into the submitted line.
func expandPastes(line string, segments []string) string {
	for i, seg := range segments {
		placeholder := fmt.Sprintf("(#%d)]", i)
		start := strings.Index(line, "[pasted ")
		end := strings.Index(line, placeholder)
		if start < 0 || end < start {
			continue
		}
		line = line[:start] + seg + line[end+len(placeholder):]
	}
	return line
}

// trailingDelimPrefix reports how many trailing bytes of data form a
// proper prefix of delim, so a delimiter split across reads is not lost.
func trailingDelimPrefix(data, delim []byte) int {
	max := len(delim) - 1
	if max > len(data) {
		max = len(data)
	}
	for l := max; l > 0; l-- {
		if bytes.Equal(data[len(data)-l:], delim[:l]) {
			return l
		}
	}
	return 0
}

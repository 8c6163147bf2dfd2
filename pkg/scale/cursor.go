package scale

// Writer is an append only output buffer. Writes never fail.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty writer that can hold capacity bytes before it
// grows.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// PutByte appends one byte.
func (w *Writer) PutByte(b byte) { w.buf = append(w.buf, b) }

// Put appends p verbatim.
func (w *Writer) Put(p []byte) { w.buf = append(w.buf, p...) }

// Bytes returns the written bytes. The slice aliases the buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Len is the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// Reader is a forward only cursor over an input slice.
type Reader struct {
	buf []byte
	off int
}

// NewReader returns a reader positioned at the start of data. data is not
// copied and must not change while it is read.
func NewReader(data []byte) *Reader {
	return &Reader{buf: data}
}

// Remaining is the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

// Offset is the number of bytes consumed so far.
func (r *Reader) Offset() int { return r.off }

// ReadByte consumes one byte. At the end of the input it returns an
// EndOfStreamError.
func (r *Reader) ReadByte() (byte, error) {
	if r.off >= len(r.buf) {
		return 0, &EndOfStreamError{Need: 1, Remaining: 0}
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

// Next consumes n bytes and returns them. The result aliases the input.
func (r *Reader) Next(n int) ([]byte, error) {
	if n < 0 || n > r.Remaining() {
		return nil, &EndOfStreamError{Need: uint64(max(n, 0)), Remaining: r.Remaining()}
	}
	p := r.buf[r.off : r.off+n]
	r.off += n
	return p, nil
}

// ABOUTME: Sliding sample window with a logical start offset
// ABOUTME: Backs both the input staging buffers and the pending output queues
package resample

// window holds a contiguous run of resident samples inside a larger backing
// slice. Retiring samples only advances start; the resident run is moved back
// to the front of the backing slice when an append would run past its end.
type window struct {
	buf   []int32
	start int
	end   int
	limit int // most samples that may be resident at once
}

// newWindow allocates a window that can hold limit resident samples. The
// backing slice is twice that size so compaction is rare.
func newWindow(limit int) *window {
	return &window{
		buf:   make([]int32, 2*limit),
		limit: limit,
	}
}

// Len returns the number of resident samples.
func (w *window) Len() int {
	return w.end - w.start
}

// Free returns how many more samples fit.
func (w *window) Free() int {
	return w.limit - w.Len()
}

// Samples returns the resident run. The slice aliases the window and is
// valid until the next Append, AppendZeros or Reset.
func (w *window) Samples() []int32 {
	return w.buf[w.start:w.end]
}

// Append copies p after the resident run. The caller checks Free first.
func (w *window) Append(p []int32) {
	w.reserve(len(p))
	copy(w.buf[w.end:], p)
	w.end += len(p)
}

// AppendZeros appends n silent samples.
func (w *window) AppendZeros(n int) {
	w.reserve(n)
	clear(w.buf[w.end : w.end+n])
	w.end += n
}

// Retire drops the oldest n samples.
func (w *window) Retire(n int) {
	if n >= w.Len() {
		w.start, w.end = 0, 0
		return
	}
	w.start += n
}

// Drain copies up to len(dst) of the oldest samples into dst and retires
// them. It returns the number copied.
func (w *window) Drain(dst []int32) int {
	n := copy(dst, w.Samples())
	w.Retire(n)
	return n
}

// Reset empties the window and makes history silent samples resident.
func (w *window) Reset(history int) {
	w.start, w.end = 0, 0
	w.AppendZeros(history)
}

// release drops the backing storage.
func (w *window) release() {
	w.buf = nil
	w.start, w.end, w.limit = 0, 0, 0
}

func (w *window) reserve(n int) {
	if w.end+n <= len(w.buf) {
		return
	}
	resident := copy(w.buf, w.buf[w.start:w.end])
	w.start, w.end = 0, resident
}

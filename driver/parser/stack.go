package parser

// frame is an entry of the parser stack. `state` is either a state number or, right after a
// shift-reduce action, the encoded reduce action that the frame is waiting for.
type frame struct {
	state int
	major int
	minor Value
}

// stack is passive storage. It never calls destructors; the parser does that, keyed by each
// frame's symbol.
type stack struct {
	frames []frame

	// max is the fixed maximum depth, or 0 when the stack grows without limit.
	max int

	// peak is the maximum depth the stack has reached.
	peak int

	// onGrow is called with the new capacity whenever the stack grows.
	onGrow func(capacity int)
}

func newStack(max int) *stack {
	s := &stack{
		max: max,
	}
	if max > 0 {
		s.frames = make([]frame, 0, max)
	}
	return s
}

// push appends a frame. It returns false when the stack has a fixed maximum depth and the frame
// doesn't fit.
func (s *stack) push(state, major int, minor Value) bool {
	if !s.ensureHeadroom() {
		return false
	}
	s.frames = append(s.frames, frame{
		state: state,
		major: major,
		minor: minor,
	})
	if len(s.frames) > s.peak {
		s.peak = len(s.frames)
	}
	return true
}

// ensureHeadroom makes room for one more frame. It returns false when the stack is full.
func (s *stack) ensureHeadroom() bool {
	if s.max > 0 {
		return len(s.frames) < s.max
	}
	if len(s.frames) < cap(s.frames) {
		return true
	}
	// 2x + 100
	frames := make([]frame, len(s.frames), cap(s.frames)*2+100)
	copy(frames, s.frames)
	s.frames = frames
	if s.onGrow != nil {
		s.onGrow(cap(s.frames))
	}
	return true
}

func (s *stack) pop() frame {
	f := s.frames[len(s.frames)-1]
	s.frames[len(s.frames)-1] = frame{}
	s.frames = s.frames[:len(s.frames)-1]
	return f
}

// popN removes the top `n` frames without returning them.
func (s *stack) popN(n int) {
	for i := len(s.frames) - n; i < len(s.frames); i++ {
		s.frames[i] = frame{}
	}
	s.frames = s.frames[:len(s.frames)-n]
}

func (s *stack) top() *frame {
	return &s.frames[len(s.frames)-1]
}

// topN returns the top `n` frames. The bottommost of them comes first.
func (s *stack) topN(n int) []frame {
	return s.frames[len(s.frames)-n:]
}

func (s *stack) depth() int {
	return len(s.frames)
}

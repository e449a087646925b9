package recorder

import (
	"time"

	"go.uber.org/zap"

	"github.com/Mr-Dark-debug/veridian/internal/database"
	"github.com/Mr-Dark-debug/veridian/internal/gridtrace"
)

// TransitionRecord converts an animator transition into its stored form.
func TransitionRecord(runID string, tr gridtrace.Transition) *database.TransitionRecord {
	return &database.TransitionRecord{
		RunID:      runID,
		Seq:        tr.Seq,
		AtMs:       tr.At,
		FromI:      tr.From.I,
		FromJ:      tr.From.J,
		ToI:        tr.To.I,
		ToJ:        tr.To.J,
		DI:         tr.Dir.DI,
		DJ:         tr.Dir.DJ,
		ScrollVel:  tr.ScrollVel,
		Candidates: tr.Candidates,
		Stalled:    tr.Stalled,
	}
}

// FrameSample converts a snapshot into its stored form.
func FrameSample(runID string, s gridtrace.Snapshot) *database.FrameSample {
	return &database.FrameSample{
		RunID:     runID,
		Frame:     s.Frame,
		AtMs:      s.At,
		ScrollY:   s.ScrollY,
		ScrollVel: s.ScrollVel,
		HeadX:     s.Head.X,
		HeadY:     s.Head.Y,
		Segments:  len(s.Segments),
	}
}

// observe is the animator's transition callback. It runs on the frame
// goroutine and must not block.
func (r *Recorder) observe(tr gridtrace.Transition) {
	r.metrics.transitions.Add(1)
	if tr.Stalled {
		r.metrics.stalls.Add(1)
	}
	rec := TransitionRecord(r.runID, tr)

	if r.offline {
		r.pendingTr = append(r.pendingTr, rec)
		if len(r.pendingTr) >= r.config.BatchSize {
			r.flushPending()
		}
		return
	}

	select {
	case r.trChan <- rec:
	default:
		// Channel full: insert directly to avoid data loss.
		r.metrics.direct.Add(1)
		r.writeTransitions([]*database.TransitionRecord{rec})
	}
}

// onFrame runs after every Step on the frame goroutine.
func (r *Recorder) onFrame(frame int64, ts float64, _ int) {
	r.metrics.frames.Add(1)

	sample := r.config.SampleEvery > 0 && frame%int64(r.config.SampleEvery) == 0
	if !sample && r.publisher == nil {
		return
	}

	snap := r.anim.Snapshot()
	r.latest.Store(&snap)
	if r.publisher != nil {
		r.publisher.Publish(snap)
	}
	if !sample {
		return
	}

	r.metrics.samples.Add(1)
	fs := FrameSample(r.runID, snap)
	if r.offline {
		r.pendingFr = append(r.pendingFr, fs)
		if len(r.pendingFr) >= r.config.BatchSize {
			r.flushPending()
		}
		return
	}
	select {
	case r.frameChan <- fs:
	default:
		r.metrics.direct.Add(1)
		r.writeFrames([]*database.FrameSample{fs})
	}
}

// flushLoop batches channel traffic into the store. It drains and returns
// once the frame loop has exited, so nothing sent during shutdown is lost.
func (r *Recorder) flushLoop() {
	ticker := time.NewTicker(r.config.FlushInterval)
	defer ticker.Stop()

	trBuf := make([]*database.TransitionRecord, 0, r.config.BatchSize)
	frBuf := make([]*database.FrameSample, 0, r.config.BatchSize)

	flush := func() {
		if len(trBuf) > 0 {
			r.writeTransitions(trBuf)
			trBuf = trBuf[:0]
		}
		if len(frBuf) > 0 {
			r.writeFrames(frBuf)
			frBuf = frBuf[:0]
		}
	}

	for {
		select {
		case tr := <-r.trChan:
			trBuf = append(trBuf, tr)
			if len(trBuf) >= r.config.BatchSize {
				flush()
			}

		case fs := <-r.frameChan:
			frBuf = append(frBuf, fs)
			if len(frBuf) >= r.config.BatchSize {
				flush()
			}

		case <-ticker.C:
			flush()

		case <-r.loopDone:
			for {
				select {
				case tr := <-r.trChan:
					trBuf = append(trBuf, tr)
				case fs := <-r.frameChan:
					frBuf = append(frBuf, fs)
				default:
					flush()
					return
				}
			}
		}
	}
}

func (r *Recorder) flushPending() {
	if len(r.pendingTr) > 0 {
		r.writeTransitions(r.pendingTr)
		r.pendingTr = r.pendingTr[:0]
	}
	if len(r.pendingFr) > 0 {
		r.writeFrames(r.pendingFr)
		r.pendingFr = r.pendingFr[:0]
	}
}

func (r *Recorder) writeTransitions(trs []*database.TransitionRecord) {
	if err := r.store.BatchInsertTransitions(trs); err != nil {
		r.log.Error("flushing transition batch", zap.Int("size", len(trs)), zap.Error(err))
		r.metrics.errors.Add(1)
		return
	}
	r.metrics.batches.Add(1)
}

func (r *Recorder) writeFrames(frames []*database.FrameSample) {
	if err := r.store.BatchInsertFrames(frames); err != nil {
		r.log.Error("flushing frame batch", zap.Int("size", len(frames)), zap.Error(err))
		r.metrics.errors.Add(1)
		return
	}
	r.metrics.batches.Add(1)
}

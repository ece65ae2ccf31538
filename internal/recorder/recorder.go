package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/internal/accumulator"
	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/internal/metrics"
	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/internal/pcm"
	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/pkg/encoderdecoder"
	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/pkg/frame"
)

// One start/stop cycle. Every session owns a fresh accumulator, so nothing
// captured by an earlier session can leak into a later container.
type session struct {
	id       uuid.UUID
	logger   *slog.Logger
	acc      *accumulator.Accumulator
	started  time.Time
	attached bool

	// Closed by Stop. A grant arriving afterwards must not attach.
	cancel chan struct{}
}

// A Recorder captures stereo audio from an AudioSourceDevice between Start and
// Stop, and renders the captured audio as a WAV container on Stop.
//
// All methods are safe for concurrent use. At most one session is live at a time.
type Recorder struct {
	source  audiodevice.AudioSourceDevice
	logger  *slog.Logger
	metrics *metrics.Metrics
	encdec  encoderdecoder.EncoderDecoder
	now     func() time.Time

	mu      sync.Mutex
	state   State
	session *session

	// The accumulator of the most recent session, kept for Stats after Stop.
	lastAcc *accumulator.Accumulator
}

type Option func(*Recorder)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Recorder) {
		r.metrics = m
	}
}

func WithEncoderDecoder(encdec encoderdecoder.EncoderDecoder) Option {
	return func(r *Recorder) {
		r.encdec = encdec
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

// Create a new Recorder in the idle state, capturing from source.
//
// Without WithEncoderDecoder the recorder renders 16 bit WAV with the default overflow policy.
func NewRecorder(source audiodevice.AudioSourceDevice, opts ...Option) (*Recorder, error) {
	if source == nil {
		return nil, ErrNilSource
	}

	r := &Recorder{
		source: source,
		logger: slog.Default(),
		now:    time.Now,
		state:  StateIdle,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.encdec == nil {
		encdec, err := encoderdecoder.NewEncoderDecoder(encoderdecoder.EncoderDecoderTypeWAV)
		if err != nil {
			return nil, err
		}
		r.encdec = encdec
	}
	return r, nil
}

// --------------------------------------------------------------------------------
// Commands

// Begin a new session and ask the source for access.
//
// Start never waits for the source. The returned channel yields exactly one value
// and is then closed:
//   - nil once capture is attached,
//   - an error matching ErrAccessDenied if the source refused,
//   - ErrSessionCancelled if Stop ran before access was granted,
//   - ctx.Err() if ctx ended first, in which case the recorder returns to idle.
//
// Returns ErrAlreadyRecording, leaving the live session untouched, if a session is live.
func (r *Recorder) Start(ctx context.Context, cfg audiodevice.CaptureConfig) (<-chan error, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateRecording {
		r.logger.Warn(
			"start rejected",
			"state", r.state,
			"session uuid", r.session.id,
		)
		r.metrics.RecordRejectedCommand(metrics.ReasonAlreadyRecording)
		return nil, ErrAlreadyRecording
	}

	id := uuid.New()
	sess := &session{
		id:      id,
		logger:  r.logger.With("session uuid", id),
		acc:     accumulator.New(),
		started: r.now(),
		cancel:  make(chan struct{}),
	}
	r.session = sess
	r.lastAcc = sess.acc
	r.state = StateRecording
	r.metrics.RecordSessionStarted()

	cfg = cfg.WithDefaults()
	sess.logger.Info(
		"recording started, requesting access",
		"sampleRate", cfg.SampleRate,
		"channelCount", cfg.ChannelCount,
		"volume", cfg.Volume,
	)

	access := r.source.RequestAccess(ctx, cfg)
	done := make(chan error, 1)
	go r.awaitAccess(ctx, sess, access, done)
	return done, nil
}

// End the live session and render everything it captured.
//
// The recorder is idle again once Stop returns, whether or not encoding succeeds.
// Stopping before access was granted yields a header-only container.
// Returns ErrNotRecording if no session is live.
func (r *Recorder) Stop() ([]byte, error) {
	r.mu.Lock()
	if r.state != StateRecording {
		r.mu.Unlock()
		r.logger.Warn("stop rejected", "state", r.state)
		r.metrics.RecordRejectedCommand(metrics.ReasonNotRecording)
		return nil, ErrNotRecording
	}

	sess := r.session
	r.session = nil
	r.state = StateIdle
	close(sess.cancel)

	// Seal first: a block racing with Stop is either fully stored or dropped
	left, right := sess.acc.Seal()

	// Detach under the lock, so it cannot disconnect a session started after this one
	if sess.attached {
		r.source.Detach()
	}
	r.mu.Unlock()

	if leftSamples, rightSamples := left.NumSamples(), right.NumSamples(); leftSamples != rightSamples {
		sess.logger.Warn(
			"channel lengths differ, longer channel truncated",
			"leftSamples", leftSamples,
			"rightSamples", rightSamples,
		)
	}

	encodeStart := time.Now()
	interleaved := pcm.Interleave(pcm.Merge(left), pcm.Merge(right))
	container, err := r.encdec.Encode(interleaved)
	if err != nil {
		sess.logger.Error(
			"could not encode recording",
			"samples", len(interleaved),
			"err", err,
		)
		r.metrics.RecordSessionAbandoned()
		return nil, fmt.Errorf("encoding recording: %w", err)
	}
	encodeTime := time.Since(encodeStart)

	elapsed := r.now().Sub(sess.started)
	if !sess.attached {
		r.metrics.RecordSessionCancelled()
	}
	r.metrics.RecordSessionCompleted(elapsed.Seconds(), len(container), encodeTime.Seconds())

	stats := sess.acc.Stats()
	sess.logger.Info(
		"recording stopped",
		"attached", sess.attached,
		"elapsed", elapsed,
		"leftBlocks", stats.Blocks[frame.ChannelLeft],
		"rightBlocks", stats.Blocks[frame.ChannelRight],
		"droppedBlocks", stats.DroppedBlocks,
		"containerBytes", len(container),
	)
	return container, nil
}

// --------------------------------------------------------------------------------
// Inspection

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// The ID of the live session. False while idle.
func (r *Recorder) SessionID() (uuid.UUID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return uuid.Nil, false
	}
	return r.session.id, true
}

// Stats of the live session, or of the most recent one while idle.
func (r *Recorder) Stats() accumulator.Stats {
	r.mu.Lock()
	acc := r.lastAcc
	r.mu.Unlock()

	if acc == nil {
		return accumulator.Stats{}
	}
	return acc.Stats()
}

// --------------------------------------------------------------------------------
// Access resolution

func (r *Recorder) awaitAccess(ctx context.Context, sess *session, access <-chan error, done chan<- error) {
	defer close(done)

	select {
	case err := <-access:
		if err != nil {
			done <- r.denied(sess, err)
			return
		}
		done <- r.granted(sess)
	case <-sess.cancel:
		sess.logger.Debug("session stopped while awaiting access")
		done <- ErrSessionCancelled
	case <-ctx.Done():
		done <- r.abandoned(sess, ctx.Err())
	}
}

func (r *Recorder) granted(sess *session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != sess {
		sess.logger.Debug("access granted after stop, not attaching")
		return ErrSessionCancelled
	}

	r.source.OnBlock(func(block frame.SampleBlock) {
		accepted := sess.acc.Push(block.Channel, block.Samples)
		r.metrics.RecordBlock(block.Channel.String(), accepted)
	})
	sess.attached = true
	sess.logger.Info("access granted, capturing")
	return nil
}

func (r *Recorder) denied(sess *session, cause error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != sess {
		return ErrSessionCancelled
	}

	r.endSession(sess)
	r.metrics.RecordAccessDenied()
	sess.logger.Warn("access denied", "err", cause)
	return fmt.Errorf("%w: %w", ErrAccessDenied, cause)
}

func (r *Recorder) abandoned(sess *session, cause error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != sess {
		return ErrSessionCancelled
	}

	r.endSession(sess)
	r.metrics.RecordSessionAbandoned()
	sess.logger.Warn("context ended while awaiting access", "err", cause)
	return cause
}

// Return to idle without rendering, discarding anything the session captured.
// Must hold r.mu.
func (r *Recorder) endSession(sess *session) {
	r.session = nil
	r.state = StateIdle
	close(sess.cancel)
	sess.acc.Seal()
}

/*
 * This file is part of Mico (https://github.com/micolabs/mico).
 * Copyright (C) 2025 Mico Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

// Package session drives the voice pipeline state machine. One Manager
// owns the full chunk-by-chunk loop: wake gating while Idle, utterance
// accumulation while Listening, asynchronous inference while Processing.
// All mutation happens under a single mutex; per-chunk work never blocks
// on model loading or inference.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/micolabs/mico-voice/internal/audio"
	"github.com/micolabs/mico-voice/internal/config"
	"github.com/micolabs/mico-voice/internal/events"
	"github.com/micolabs/mico-voice/internal/logging"
	"github.com/micolabs/mico-voice/internal/stt"
	"github.com/micolabs/mico-voice/internal/vad"
	"github.com/micolabs/mico-voice/internal/wake"
)

// State is the session lifecycle state. Transitions form a cycle:
// Idle -> WakeDetected -> Listening -> Processing -> Idle, with manual
// start/stop shortcuts.
type State int

const (
	StateIdle State = iota
	StateWakeDetected
	StateListening
	StateProcessing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWakeDetected:
		return "wake_detected"
	case StateListening:
		return "listening"
	case StateProcessing:
		return "processing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrNotIdle is returned when a request requires the session to be Idle.
var ErrNotIdle = errors.New("session: busy, only allowed while idle")

// ErrNoModel is returned when listening is requested before an STT model
// has loaded.
var ErrNoModel = errors.New("session: no STT model loaded")

// ErrEngineLoading is returned by Configure while a background model load
// from a previous Configure is still in flight.
var ErrEngineLoading = errors.New("session: engine load in progress")

// WakeDetector is the wake-word scoring dependency. *wake.Detector
// satisfies it.
type WakeDetector interface {
	Detect(chunk *audio.Chunk) (wake.Score, error)
	Reset()
	ModelLoaded() bool
	SetThreshold(v float64)
}

// Classifier is the per-chunk speech/silence dependency. *vad.Detector
// satisfies it.
type Classifier interface {
	Classify(chunk *audio.Chunk) (vad.Class, error)
}

// Publisher fans finalized events out to the rest of the system.
type Publisher interface {
	PublishWake(ev *events.WakeEvent) error
	PublishTranscript(tr *events.Transcript) error
}

// Store persists finalized transcripts.
type Store interface {
	Insert(tr *events.Transcript) error
}

// EngineFactory builds an unloaded STT engine by name. Defaults to
// stt.New; tests substitute fakes.
type EngineFactory func(name string) (stt.Engine, error)

// ClassifierFactory builds a speech classifier for an aggressiveness
// level. Defaults to vad.New.
type ClassifierFactory func(aggressiveness int) (Classifier, error)

// Settings is the runtime-reconfigurable subset of the pipeline. Applied
// atomically via Configure, only while Idle.
type Settings struct {
	Engine            string
	WakeThreshold     float64
	VADAggressiveness int
	EndpointSilence   time.Duration
	MaxUtterance      time.Duration
}

// Config carries the fixed pipeline parameters. FromConfig maps the
// process configuration onto it.
type Config struct {
	ChunkDuration     time.Duration
	PullTimeout       time.Duration
	MaxPullRetries    int
	WakeWord          string
	PreRoll           time.Duration
	ProcessingTimeout time.Duration
	HistorySize       int
	ModelPaths        map[string]string // engine name -> model artifact path
	Settings          Settings
}

// FromConfig narrows the process configuration to the session's view.
func FromConfig(cfg *config.Config) Config {
	return Config{
		ChunkDuration:     cfg.Audio.ChunkDuration,
		PullTimeout:       cfg.Audio.PullTimeout,
		MaxPullRetries:    cfg.Audio.MaxPullRetries,
		WakeWord:          cfg.Wake.Word,
		PreRoll:           cfg.Session.PreRoll,
		ProcessingTimeout: cfg.STT.ProcessingTimeout,
		HistorySize:       cfg.Session.HistorySize,
		ModelPaths: map[string]string{
			stt.EngineVosk:    cfg.STT.VoskModelPath,
			stt.EngineWhisper: cfg.STT.WhisperModelPath,
		},
		Settings: Settings{
			Engine:            cfg.STT.Engine,
			WakeThreshold:     cfg.Wake.Threshold,
			VADAggressiveness: cfg.VAD.Aggressiveness,
			EndpointSilence:   cfg.Session.EndpointSilence,
			MaxUtterance:      cfg.Session.MaxUtterance,
		},
	}
}

// Deps are the injected collaborators. Wake is required; nil optional
// fields disable the corresponding side effect.
type Deps struct {
	Wake        WakeDetector
	Engines     EngineFactory
	Classifiers ClassifierFactory
	Publisher   Publisher
	Store       Store
}

// Status is a point-in-time snapshot for status queries.
type Status struct {
	State           string `json:"state"`
	Engine          string `json:"engine"`
	ModelLoaded     bool   `json:"model_loaded"`
	WakeModelLoaded bool   `json:"wake_model_loaded"`
	Loading         bool   `json:"loading"`
	PartialText     string `json:"partial_text,omitempty"`
	Halted          bool   `json:"halted"`
	Error           string `json:"error,omitempty"`
}

// Manager runs the voice session state machine. Safe for concurrent use:
// the audio loop calls Tick while control surfaces call
// StartListening/StopListening/Configure/Status.
type Manager struct {
	cfg Config

	mu       sync.Mutex
	state    State
	settings Settings

	wakeDet     WakeDetector
	classifier  Classifier
	classifiers ClassifierFactory

	engine  stt.Engine
	engines EngineFactory
	loading bool

	// pendingEngine finished loading while a session was in flight; it
	// is published on the next return to Idle so an utterance never
	// changes engines midway.
	pendingEngine stt.Engine

	preRoll   *audio.PreRoll
	utterance *audio.Utterance
	stream    stt.Stream
	streamCtx context.CancelFunc
	partial   string

	// wakeWord of the in-flight session; empty for push-to-talk.
	sessionWakeWord string

	// generation invalidates in-flight processing results after a stop.
	generation uint64
	procCancel context.CancelFunc

	timeouts int
	halted   bool
	lastErr  string

	history   *History
	publisher Publisher
	store     Store

	// test hook, observes every state transition
	onTransition func(from, to State)
}

// New builds a manager from configuration and dependencies. The STT
// engine is constructed and its model loaded synchronously; a load
// failure is not fatal, the manager starts Idle with the error surfaced
// in Status until Configure resolves it.
func New(cfg Config, deps Deps) (*Manager, error) {
	if deps.Wake == nil {
		return nil, fmt.Errorf("session: wake detector is required")
	}
	if err := validateSettings(cfg.Settings); err != nil {
		return nil, err
	}
	if cfg.ChunkDuration <= 0 {
		return nil, fmt.Errorf("session: chunk duration must be positive")
	}
	if cfg.HistorySize < 1 {
		return nil, fmt.Errorf("session: history size must be at least 1")
	}

	if deps.Engines == nil {
		deps.Engines = stt.New
	}
	if deps.Classifiers == nil {
		deps.Classifiers = func(level int) (Classifier, error) { return vad.New(level) }
	}

	classifier, err := deps.Classifiers(cfg.Settings.VADAggressiveness)
	if err != nil {
		return nil, err
	}

	prerollChunks := int(cfg.PreRoll / cfg.ChunkDuration)
	if prerollChunks < 1 {
		prerollChunks = 1
	}

	m := &Manager{
		cfg:         cfg,
		state:       StateIdle,
		settings:    cfg.Settings,
		wakeDet:     deps.Wake,
		classifier:  classifier,
		classifiers: deps.Classifiers,
		engines:     deps.Engines,
		preRoll:     audio.NewPreRoll(prerollChunks),
		history:     NewHistory(cfg.HistorySize),
		publisher:   deps.Publisher,
		store:       deps.Store,
	}
	m.wakeDet.SetThreshold(cfg.Settings.WakeThreshold)

	engine, err := deps.Engines(cfg.Settings.Engine)
	if err != nil {
		return nil, err
	}
	m.engine = engine
	if !engine.Loaded() {
		if err := engine.Load(cfg.ModelPaths[cfg.Settings.Engine]); err != nil {
			m.lastErr = err.Error()
			logging.LogError(err, "STT model load failed, session stays idle")
		}
	}

	return m, nil
}

func validateSettings(s Settings) error {
	if s.Engine != stt.EngineVosk && s.Engine != stt.EngineWhisper {
		return fmt.Errorf("session: unknown engine %q", s.Engine)
	}
	if s.WakeThreshold <= 0 || s.WakeThreshold > 1 {
		return fmt.Errorf("session: wake threshold %v out of range (0, 1]", s.WakeThreshold)
	}
	if s.VADAggressiveness < 0 || s.VADAggressiveness > 3 {
		return fmt.Errorf("session: VAD aggressiveness %d out of range 0-3", s.VADAggressiveness)
	}
	if s.EndpointSilence <= 0 {
		return fmt.Errorf("session: endpoint silence must be positive")
	}
	if s.MaxUtterance <= s.EndpointSilence {
		return fmt.Errorf("session: max utterance must exceed endpoint silence")
	}
	return nil
}

// Run pulls chunks from the source and ticks the state machine until the
// context is cancelled, the source ends, or the retry budget for
// consecutive pull timeouts is exhausted. Exhaustion is fatal: the
// manager halts and the *audio.SourceError is returned.
func (m *Manager) Run(ctx context.Context, source audio.Source) error {
	logging.LogAudioPipeline("capture loop started",
		zap.Duration("chunk", m.cfg.ChunkDuration),
		zap.Int("retry_budget", m.cfg.MaxPullRetries))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		chunk, err := source.Pull(ctx, m.cfg.PullTimeout)
		switch {
		case err == nil:
			m.mu.Lock()
			m.timeouts = 0
			m.mu.Unlock()
			m.Tick(chunk)

		case errors.Is(err, io.EOF):
			logging.LogAudioPipeline("audio source ended")
			return nil

		case ctx.Err() != nil:
			return ctx.Err()

		case errors.Is(err, audio.ErrTimeout):
			m.mu.Lock()
			m.timeouts++
			n := m.timeouts
			m.mu.Unlock()
			logging.LogWarn("audio pull timed out, retrying",
				zap.Int("consecutive", n),
				zap.Int("budget", m.cfg.MaxPullRetries))
			if n >= m.cfg.MaxPullRetries {
				srcErr := &audio.SourceError{Timeouts: n, Err: err}
				m.halt(srcErr)
				return srcErr
			}

		default:
			// Non-timeout pull failures burn the same budget.
			m.mu.Lock()
			m.timeouts++
			n := m.timeouts
			m.mu.Unlock()
			logging.LogError(err, "audio pull failed",
				zap.Int("consecutive", n))
			if n >= m.cfg.MaxPullRetries {
				srcErr := &audio.SourceError{Timeouts: n, Err: err}
				m.halt(srcErr)
				return srcErr
			}
		}
	}
}

// Tick feeds one chunk through the state machine. Never blocks on model
// loading or inference.
func (m *Manager) Tick(chunk *audio.Chunk) {
	if chunk == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.halted {
		return
	}

	switch m.state {
	case StateIdle:
		m.tickIdle(chunk)
	case StateWakeDetected:
		// Held for exactly one tick so observers can see the trigger.
		m.setState(StateListening)
		m.tickListening(chunk)
	case StateListening:
		m.tickListening(chunk)
	case StateProcessing:
		// Inference in flight; audio during this window is dropped.
	}
}

func (m *Manager) tickIdle(chunk *audio.Chunk) {
	m.preRoll.Push(chunk)

	if !m.wakeDet.ModelLoaded() {
		return
	}
	if m.engine == nil || !m.engine.Loaded() {
		// No engine to hand the utterance to; stay idle until a
		// configure resolves the load error.
		return
	}

	score, err := m.wakeDet.Detect(chunk)
	if err != nil {
		// Detection failures degrade to "no wake" for this chunk.
		logging.LogWarn("wake detection error", zap.Error(err))
		return
	}
	if !score.Triggered {
		return
	}

	logging.LogWakeDetection(m.cfg.WakeWord, score.Confidence)
	m.beginUtterance(m.cfg.WakeWord, true)
	m.setState(StateWakeDetected)

	if m.publisher != nil {
		ev := events.NewWakeEvent(m.cfg.WakeWord, score.Confidence)
		go func() {
			if err := m.publisher.PublishWake(ev); err != nil {
				logging.LogError(err, "publishing wake event")
			}
		}()
	}
}

// beginUtterance seeds a fresh utterance. With pre-roll, the retained
// chunks (including the triggering one, pushed before detection) are
// moved in oldest-first; push-to-talk starts empty.
func (m *Manager) beginUtterance(wakeWord string, withPreRoll bool) {
	m.utterance = audio.NewUtterance(m.settings.MaxUtterance)
	m.sessionWakeWord = wakeWord

	if withPreRoll {
		for _, c := range m.preRoll.Drain() {
			if err := m.utterance.Append(c); err != nil {
				break
			}
		}
	} else {
		m.preRoll.Clear()
	}

	m.openStream()
}

// openStream starts incremental decoding when the engine supports it and
// feeds any already-buffered chunks. Failures fall back to batch
// transcription at finalize time.
func (m *Manager) openStream() {
	se, ok := m.engine.(stt.StreamingEngine)
	if !ok || !m.engine.SupportsStreaming() || !m.engine.Loaded() {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := se.OpenStream(ctx)
	if err != nil {
		cancel()
		logging.LogWarn("opening decode stream failed, falling back to batch", zap.Error(err))
		return
	}
	m.stream = stream
	m.streamCtx = cancel

	for _, c := range m.utterance.Chunks() {
		if err := stream.Feed(c); err != nil {
			logging.LogWarn("stream feed failed, falling back to batch", zap.Error(err))
			m.closeStreamLocked()
			return
		}
	}
}

func (m *Manager) closeStreamLocked() {
	if m.stream != nil {
		if err := m.stream.Close(); err != nil {
			logging.LogWarn("closing decode stream", zap.Error(err))
		}
		m.stream = nil
	}
	if m.streamCtx != nil {
		m.streamCtx()
		m.streamCtx = nil
	}
	m.partial = ""
}

func (m *Manager) tickListening(chunk *audio.Chunk) {
	if err := m.utterance.Append(chunk); err != nil {
		// Hard cap reached; the chunk that would overflow is dropped.
		logging.LogAudioPipeline("utterance cap reached, finalizing",
			zap.Duration("duration", m.utterance.Duration()))
		m.finalizeLocked()
		return
	}

	if m.stream != nil {
		if err := m.stream.Feed(chunk); err != nil {
			logging.LogWarn("stream feed failed, falling back to batch", zap.Error(err))
			m.closeStreamLocked()
		} else if text, ok := m.stream.Partial(); ok {
			m.partial = text
		}
	}

	class, err := m.classifier.Classify(chunk)
	if err != nil {
		// Classification failures degrade to silence.
		logging.LogWarn("VAD error", zap.Error(err))
		class = vad.Silence
	}

	if class == vad.Speech {
		m.utterance.ResetSilence()
	} else {
		m.utterance.AddSilence(chunk.Duration())
	}

	if m.utterance.TrailingSilence() >= m.settings.EndpointSilence {
		logging.LogAudioPipeline("endpoint silence reached, finalizing",
			zap.Duration("duration", m.utterance.Duration()),
			zap.Duration("trailing_silence", m.utterance.TrailingSilence()))
		m.finalizeLocked()
	}
}

// finalizeLocked hands the utterance to the inference worker and moves
// to Processing. An empty utterance (push-to-talk with no audio) resets
// straight to Idle without a transcript.
func (m *Manager) finalizeLocked() {
	utt := m.utterance
	m.utterance = nil

	stream := m.stream
	streamCancel := m.streamCtx
	m.stream = nil
	m.streamCtx = nil

	if utt == nil || utt.Len() == 0 {
		if stream != nil {
			stream.Close()
		}
		if streamCancel != nil {
			streamCancel()
		}
		m.resetToIdleLocked()
		return
	}

	m.setState(StateProcessing)

	gen := m.generation
	engine := m.engine
	wakeWord := m.sessionWakeWord
	timeout := m.cfg.ProcessingTimeout

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	m.procCancel = cancel

	go m.process(ctx, cancel, streamCancel, gen, engine, stream, utt, wakeWord)
}

// process runs inference off the tick path and reports back. Results for
// a stale generation (stop was requested meanwhile) are discarded.
func (m *Manager) process(ctx context.Context, cancel, streamCancel context.CancelFunc,
	gen uint64, engine stt.Engine, stream stt.Stream, utt *audio.Utterance, wakeWord string) {
	defer cancel()
	if streamCancel != nil {
		defer streamCancel()
	}

	tr := events.NewTranscript(engine.Name(), wakeWord, utt.Duration())

	var res *stt.Result
	var err error
	if stream != nil {
		res, err = stream.Finalize()
	} else {
		res, err = engine.TranscribeBatch(ctx, utt)
	}

	if err != nil {
		tr.SetError(err)
		logging.LogError(err, "transcription failed",
			zap.String("engine", engine.Name()),
			zap.Duration("audio", utt.Duration()))
	} else {
		tr.SetResult(res.Text, res.Confidence, res.ProcessingTime)
		logging.LogTranscription(engine.Name(), res.Text,
			zap.Duration("took", res.ProcessingTime),
			zap.Float64("confidence", res.Confidence))
	}

	m.completeProcessing(gen, tr)
}

func (m *Manager) completeProcessing(gen uint64, tr *events.Transcript) {
	m.mu.Lock()
	if gen != m.generation || m.state != StateProcessing {
		// Stop was requested while inference ran; the result is dropped.
		m.mu.Unlock()
		logging.LogAudioPipeline("discarding stale transcription result")
		return
	}

	m.history.Push(tr)
	m.resetToIdleLocked()

	store := m.store
	publisher := m.publisher
	m.mu.Unlock()

	if store != nil {
		if err := store.Insert(tr); err != nil {
			logging.LogError(err, "persisting transcript")
		}
	}
	if publisher != nil {
		if err := publisher.PublishTranscript(tr); err != nil {
			logging.LogError(err, "publishing transcript")
		}
	}
}

// resetToIdleLocked clears per-session context and returns to Idle. The
// pre-roll restarts empty so stale audio never leaks into the next
// utterance. An engine load that completed during the session is
// published here.
func (m *Manager) resetToIdleLocked() {
	m.wakeDet.Reset()
	m.preRoll.Clear()
	m.partial = ""
	m.sessionWakeWord = ""
	m.procCancel = nil
	if m.pendingEngine != nil {
		m.swapEngineLocked(m.pendingEngine)
		m.pendingEngine = nil
	}
	m.setState(StateIdle)
}

// StartListening opens a push-to-talk session, bypassing wake detection.
// The utterance starts empty. Returns ErrNotIdle unless the session is
// Idle; rejected while the engine has no loaded model.
func (m *Manager) StartListening() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.halted {
		return fmt.Errorf("session: halted: %s", m.lastErr)
	}
	if m.state != StateIdle {
		return ErrNotIdle
	}
	if m.engine == nil || !m.engine.Loaded() {
		return ErrNoModel
	}

	m.beginUtterance("", false)
	m.setState(StateListening)
	return nil
}

// StopListening aborts the in-flight session from any state, effective
// within one tick. Buffered audio and in-flight inference results are
// discarded without producing a transcript. A no-op while Idle.
func (m *Manager) StopListening() {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateIdle:
		return

	case StateWakeDetected, StateListening:
		m.closeStreamLocked()
		m.utterance = nil
		m.resetToIdleLocked()

	case StateProcessing:
		m.generation++
		if m.procCancel != nil {
			m.procCancel()
		}
		m.resetToIdleLocked()
	}
}

// Configure atomically applies new settings and returns the active
// configuration. Rejected with ErrNotIdle unless the session is Idle. An
// engine change constructs the new engine immediately but loads its
// model in the background; the active engine is swapped only once the
// load succeeds, so a tick never observes a half-loaded engine.
func (m *Manager) Configure(s Settings) (Settings, error) {
	if err := validateSettings(s); err != nil {
		return Settings{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateIdle {
		return m.settings, ErrNotIdle
	}
	if m.loading {
		// One load at a time; concurrent loads could complete out of
		// order and publish the wrong engine.
		return m.settings, ErrEngineLoading
	}

	if s.VADAggressiveness != m.settings.VADAggressiveness {
		classifier, err := m.classifiers(s.VADAggressiveness)
		if err != nil {
			return m.settings, err
		}
		m.classifier = classifier
	}

	m.wakeDet.SetThreshold(s.WakeThreshold)

	engineChanged := m.engine == nil || s.Engine != m.settings.Engine || !m.engine.Loaded()
	if engineChanged {
		engine, err := m.engines(s.Engine)
		if err != nil {
			return m.settings, err
		}
		if engine.Loaded() {
			m.swapEngineLocked(engine)
		} else {
			m.loading = true
			path := m.cfg.ModelPaths[s.Engine]
			go m.loadEngine(engine, path)
		}
	}
	m.settings = s

	logging.LogAudioPipeline("session reconfigured",
		zap.String("engine", s.Engine),
		zap.Float64("wake_threshold", s.WakeThreshold),
		zap.Int("vad_aggressiveness", s.VADAggressiveness),
		zap.Duration("endpoint_silence", s.EndpointSilence),
		zap.Duration("max_utterance", s.MaxUtterance))
	return m.settings, nil
}

// loadEngine loads a model off the tick path and publishes the engine
// atomically on success. On failure the previous engine stays active and
// the error is surfaced in Status. A load that finishes while a session
// is in flight is held back and published when the session returns to
// Idle, never mid-utterance.
func (m *Manager) loadEngine(engine stt.Engine, path string) {
	err := engine.Load(path)

	m.mu.Lock()
	m.loading = false
	if err != nil {
		m.lastErr = err.Error()
		m.mu.Unlock()
		logging.LogError(err, "background model load failed")
		engine.Close()
		return
	}
	m.lastErr = ""
	if m.state != StateIdle {
		m.pendingEngine = engine
		m.mu.Unlock()
		logging.LogAudioPipeline("engine loaded, swap deferred until idle",
			zap.String("engine", engine.Name()))
		return
	}
	m.swapEngineLocked(engine)
	m.mu.Unlock()
}

func (m *Manager) swapEngineLocked(engine stt.Engine) {
	old := m.engine
	m.engine = engine
	m.lastErr = ""
	if old != nil && old != engine {
		go old.Close()
	}
}

// Transcripts returns up to limit finalized transcripts, most recent
// first. limit <= 0 returns the full history.
func (m *Manager) Transcripts(limit int) []*events.Transcript {
	return m.history.Snapshot(limit)
}

// ClearTranscripts empties the transcript history.
func (m *Manager) ClearTranscripts() {
	m.history.Clear()
}

// Status reports a snapshot of the session.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Status{
		State:           m.state.String(),
		Engine:          m.settings.Engine,
		ModelLoaded:     m.engine != nil && m.engine.Loaded(),
		WakeModelLoaded: m.wakeDet.ModelLoaded(),
		Loading:         m.loading,
		PartialText:     m.partial,
		Halted:          m.halted,
		Error:           m.lastErr,
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Close stops any in-flight work and releases the engine.
func (m *Manager) Close() error {
	m.StopListening()

	m.mu.Lock()
	engine := m.engine
	pending := m.pendingEngine
	m.engine = nil
	m.pendingEngine = nil
	m.mu.Unlock()

	if pending != nil && pending != engine {
		pending.Close()
	}
	if engine != nil {
		return engine.Close()
	}
	return nil
}

// halt marks the session dead after the source retry budget is
// exhausted. In-flight audio is discarded; Status carries the error.
func (m *Manager) halt(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.halted = true
	m.generation++
	if m.procCancel != nil {
		m.procCancel()
	}
	m.closeStreamLocked()
	m.utterance = nil
	m.resetToIdleLocked()
	m.lastErr = err.Error()

	logging.LogError(err, "audio source declared dead, session halted")
}

func (m *Manager) setState(to State) {
	from := m.state
	if from == to {
		return
	}
	m.state = to
	logging.LogSessionTransition(from.String(), to.String())
	if m.onTransition != nil {
		m.onTransition(from, to)
	}
}

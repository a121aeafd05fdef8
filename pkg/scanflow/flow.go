// Package scanflow drives one scene search and analysis from parameters to a stored result.
//
// A Flow moves through Idle, Discovering, Discovered, Selected, Submitting and then
// Succeeded or Failed. Every request is tagged with the flow's generation; if the flow is
// abandoned or restarted while a request runs, the late answer is dropped with ErrStale and
// never reaches the state or the store.
package scanflow

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/agroscan/agroscan/pkg/analysis"
	"github.com/agroscan/agroscan/pkg/storage"
	"github.com/gammazero/workerpool"
)

type State int

const (
	Idle State = iota
	Discovering
	Discovered
	Selected
	Submitting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Discovering:
		return "discovering"
	case Discovered:
		return "discovered"
	case Selected:
		return "selected"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

const (
	DefaultDiscoveryTimeout = 30 * time.Second
	DefaultSubmitTimeout    = 60 * time.Second
	DefaultSaveTimeout      = 10 * time.Second
	DefaultEnrichWorkers    = 4
)

// Service is the part of the analysis API a flow needs.
type Service interface {
	DiscoverScenes(ctx context.Context, q analysis.SceneQuery) ([]analysis.SceneCandidate, error)
	SceneMetadata(ctx context.Context, base analysis.SceneCandidate) (analysis.SceneCandidate, error)
	PrepareDownload(ctx context.Context, entityIDs ...string) error
	DetectDisease(ctx context.Context, req analysis.DetectRequest) (analysis.AnalysisResult, error)
}

// Recorder stores finished results.
type Recorder interface {
	Append(ctx context.Context, key string, record storage.ScanRecord) (storage.ScanRecord, error)
}

// Progress is shown while a submission runs.
type Progress interface {
	Start(label string)
	Stop()
}

type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

type nopProgress struct{}

func (nopProgress) Start(string) {}
func (nopProgress) Stop()        {}

type Config struct {
	Service  Service
	Store    Recorder
	Key      string   // defaults to storage.ResultsKey
	Log      Logger   // optional
	Progress Progress // optional

	DiscoveryTimeout time.Duration
	SubmitTimeout    time.Duration

	// Enrich fetches full metadata for every discovered scene.
	Enrich        bool
	EnrichWorkers int
	// Download asks the service to fetch scene files before analysis.
	Download    bool
	GenerateMap bool
	Threshold   float64

	Now func() time.Time
}

// Outcome is a finished analysis.
type Outcome struct {
	Result analysis.AnalysisResult
	Record storage.ScanRecord
	Scene  *analysis.SceneCandidate
	Image  string
}

type Flow struct {
	cfg Config
	log Logger

	mu      sync.Mutex
	state   State
	gen     uint64
	params  Params
	scenes  []analysis.SceneCandidate
	scene   *analysis.SceneCandidate
	image   string
	outcome *Outcome
	lastErr error
}

func New(cfg Config) *Flow {
	if cfg.Key == "" {
		cfg.Key = storage.ResultsKey
	}
	if cfg.DiscoveryTimeout <= 0 {
		cfg.DiscoveryTimeout = DefaultDiscoveryTimeout
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = DefaultSubmitTimeout
	}
	if cfg.EnrichWorkers <= 0 {
		cfg.EnrichWorkers = DefaultEnrichWorkers
	}
	if cfg.Progress == nil {
		cfg.Progress = nopProgress{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	log := cfg.Log
	if log == nil {
		log = nopLogger{}
	}
	return &Flow{cfg: cfg, log: log}
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) Params() Params {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.params
}

// SetParams replaces the search inputs. Any discovery in flight becomes stale and the flow
// goes back to Idle.
func (f *Flow) SetParams(p Params) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Submitting {
		return ErrBusy
	}
	f.params = p
	f.resetLocked()
	return nil
}

// CanDiscover reports whether Discover would send a request right now.
func (f *Flow) CanDiscover() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.params.Validate() == nil && f.state != Discovering && f.state != Submitting
}

// Scenes returns the scenes found by the last discovery.
func (f *Flow) Scenes() []analysis.SceneCandidate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyScenes(f.scenes)
}

// copyScenes keeps an empty result non-nil.
func copyScenes(scenes []analysis.SceneCandidate) []analysis.SceneCandidate {
	out := make([]analysis.SceneCandidate, len(scenes))
	copy(out, scenes)
	return out
}

// Empty reports a finished discovery that found nothing.
func (f *Flow) Empty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == Discovered && len(f.scenes) == 0
}

// Selection returns the selected scene or image path.
func (f *Flow) Selection() (*analysis.SceneCandidate, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scene != nil {
		s := *f.scene
		return &s, ""
	}
	return nil, f.image
}

// Outcome returns the last successful analysis, if any.
func (f *Flow) Outcome() *Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.outcome
}

// Err returns the error that moved the flow to Failed.
func (f *Flow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// Discover searches for scenes with the current params. It clears any selection. Finding
// nothing is not an error; check Empty.
func (f *Flow) Discover(ctx context.Context) ([]analysis.SceneCandidate, error) {
	f.mu.Lock()
	if err := f.params.Validate(); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	if f.state == Discovering || f.state == Submitting {
		f.mu.Unlock()
		return nil, ErrBusy
	}
	f.resetLocked()
	f.state = Discovering
	gen := f.gen
	q := analysis.SceneQuery{Region: f.params.Region, Date: f.params.Date, MaxCloud: f.params.MaxCloud}
	f.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, f.cfg.DiscoveryTimeout)
	defer cancel()

	f.log.Debugf("Discovering scenes for %s on %s (max cloud %d%%)", q.Region, q.Date, q.MaxCloud)
	scenes, err := f.cfg.Service.DiscoverScenes(ctx, q)
	if err == nil && f.cfg.Enrich && len(scenes) > 0 {
		scenes = f.enrich(ctx, gen, scenes)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gen != gen {
		return nil, ErrStale
	}
	if err != nil {
		f.state = Idle
		f.lastErr = err
		return nil, err
	}
	if scenes == nil {
		scenes = []analysis.SceneCandidate{}
	}
	f.scenes = scenes
	f.state = Discovered
	return copyScenes(scenes), nil
}

// enrich merges full metadata into every scene. A scene whose lookup fails is kept as is.
func (f *Flow) enrich(ctx context.Context, gen uint64, scenes []analysis.SceneCandidate) []analysis.SceneCandidate {
	out := make([]analysis.SceneCandidate, len(scenes))
	wp := workerpool.New(f.cfg.EnrichWorkers)
	for i, s := range scenes {
		i, s := i, s
		wp.Submit(func() {
			out[i] = s
			if !f.current(gen) {
				return
			}
			m, err := f.cfg.Service.SceneMetadata(ctx, s)
			if err != nil {
				f.log.Warnf("Scene metadata fetch failed for %s: %v", s.EntityID, err)
				return
			}
			out[i] = m
		})
	}
	wp.StopWait()
	return out
}

func (f *Flow) current(gen uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gen == gen
}

// Select picks a discovered scene by entity id.
func (f *Flow) Select(entityID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Discovering || f.state == Submitting {
		return ErrBusy
	}
	for i := range f.scenes {
		if f.scenes[i].EntityID == entityID {
			s := f.scenes[i]
			f.scene, f.image = &s, ""
			f.state = Selected
			f.lastErr = nil
			return nil
		}
	}
	return fmt.Errorf("%w: scene %q was not discovered", ErrValidation, entityID)
}

// SelectImage picks a local image instead of a scene.
func (f *Flow) SelectImage(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Discovering || f.state == Submitting {
		return ErrBusy
	}
	fh, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	st, err := fh.Stat()
	fh.Close()
	if err != nil || !st.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", ErrValidation, path)
	}
	f.scene, f.image = nil, path
	f.state = Selected
	f.lastErr = nil
	return nil
}

// Submit analyses the current selection and stores the result. It requires a Selected
// flow. On failure the flow moves to Failed and keeps the selection so Retry can resend it.
func (f *Flow) Submit(ctx context.Context) (*Outcome, error) {
	return f.submit(ctx, Selected)
}

func (f *Flow) submit(ctx context.Context, from State) (*Outcome, error) {
	f.mu.Lock()
	if f.state == Discovering || f.state == Submitting {
		f.mu.Unlock()
		return nil, ErrBusy
	}
	if f.scene == nil && f.image == "" {
		f.mu.Unlock()
		return nil, ErrNoSelection
	}
	if f.state != from {
		st := f.state
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot submit in state %s", ErrValidation, st)
	}
	f.gen++
	gen := f.gen
	f.state = Submitting
	f.lastErr = nil
	req := analysis.DetectRequest{ImagePath: f.image, GenerateMap: f.cfg.GenerateMap, Threshold: f.cfg.Threshold}
	var scene *analysis.SceneCandidate
	if f.scene != nil {
		s := *f.scene
		scene = &s
		req.SceneID = s.EntityID
	}
	f.mu.Unlock()

	label := "Analysing " + req.ImagePath
	if scene != nil {
		label = "Analysing scene " + scene.EntityID
	}
	f.cfg.Progress.Start(label)
	res, err := f.analyse(ctx, req)
	f.cfg.Progress.Stop()

	f.mu.Lock()
	if f.gen != gen {
		f.mu.Unlock()
		return nil, ErrStale
	}
	if err != nil {
		f.state = Failed
		f.lastErr = err
		f.mu.Unlock()
		return nil, err
	}
	f.mu.Unlock()

	// Still Submitting, so Discover and SetParams are refused while the result is written.
	// Abandon only detaches the flow; the record is kept.
	rec, serr := f.save(ctx, analysis.ToRecord(res, f.cfg.Now()))
	out := &Outcome{Result: res, Record: rec, Scene: scene, Image: req.ImagePath}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gen == gen {
		f.outcome = out
		f.state = Succeeded
	}
	if serr != nil {
		f.log.Errorf("Analysis finished but could not be saved: %v", serr)
		return out, fmt.Errorf("saving result: %w", serr)
	}
	return out, nil
}

// save outlives the caller's context: a finished analysis is written even if the caller
// gave up in the meantime.
func (f *Flow) save(ctx context.Context, r storage.ScanRecord) (storage.ScanRecord, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultSaveTimeout)
	defer cancel()
	return f.cfg.Store.Append(ctx, f.cfg.Key, r)
}

func (f *Flow) analyse(ctx context.Context, req analysis.DetectRequest) (analysis.AnalysisResult, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.SubmitTimeout)
	defer cancel()

	if req.SceneID != "" && f.cfg.Download {
		if err := f.cfg.Service.PrepareDownload(ctx, req.SceneID); err != nil {
			return analysis.AnalysisResult{}, err
		}
	}
	return f.cfg.Service.DetectDisease(ctx, req)
}

// Retry resends a failed submission.
func (f *Flow) Retry(ctx context.Context) (*Outcome, error) {
	f.mu.Lock()
	st := f.state
	f.mu.Unlock()
	if st != Failed {
		return nil, fmt.Errorf("%w: nothing to retry in state %s", ErrValidation, st)
	}
	return f.submit(ctx, Failed)
}

// Abandon drops everything and returns to Idle. Requests still in flight become stale.
func (f *Flow) Abandon() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetLocked()
	f.outcome = nil
}

func (f *Flow) resetLocked() {
	f.gen++
	f.state = Idle
	f.scenes = nil
	f.scene = nil
	f.image = ""
	f.lastErr = nil
}

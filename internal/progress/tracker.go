package progress

import (
	"regexp"
	"strconv"
	"sync"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// MaxRunningProgress caps cumulative progress while a job runs. 1.0 is
// reserved for the terminal done signal.
const MaxRunningProgress = 0.99

// counterRe matches "[i/n]" item counters in stage log lines.
var counterRe = regexp.MustCompile(`\[(\d+)/(\d+)\]`)

// Sink receives each derived progress event. It must not block.
type Sink func(model.ProgressEvent)

// Reporter is the explicit progress capability handed to stages that
// report their own progress instead of relying on log detection.
type Reporter interface {
	Report(stage int, fraction float64, message string)
}

// Tracker turns log lines and explicit reports for one job into a
// non-decreasing sequence of progress events.
type Tracker struct {
	mu       sync.Mutex
	stages   []Stage
	base     []float64 // base[i] = sum of weights of stages before stage i+1
	stage    int
	fraction float64
	sink     Sink
}

// NewTracker creates a tracker positioned at stage 1. The stages must have
// passed ValidateStages.
func NewTracker(stages []Stage, sink Sink) *Tracker {
	compiled := compile(stages)
	base := make([]float64, len(compiled))
	acc := 0.0
	for i, s := range compiled {
		base[i] = acc
		acc += s.Weight
	}
	if sink == nil {
		sink = func(model.ProgressEvent) {}
	}
	return &Tracker{
		stages: compiled,
		base:   base,
		stage:  1,
		sink:   sink,
	}
}

// Observe derives a progress event from one log line and forwards it to the
// sink. Lines matching no stage pattern keep the current stage and fraction.
// A match for an earlier stage than the current one is treated as no match,
// so progress never moves backwards.
func (t *Tracker) Observe(line string) model.ProgressEvent {
	t.mu.Lock()
	defer t.mu.Unlock()

	if candidate, ok := t.detect(line); ok {
		if candidate > t.stage {
			t.stage = candidate
			t.fraction = 0
		}
		if candidate == t.stage {
			if f, ok := counterFraction(line); ok {
				t.advance(f)
			}
		}
	}

	return t.emit(line)
}

// Report records explicit progress for a stage. Reports for earlier stages
// or lower fractions than already seen do not move progress backwards.
func (t *Tracker) Report(stage int, fraction float64, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if stage > t.stage && stage <= len(t.stages) {
		t.stage = stage
		t.fraction = 0
	}
	if stage == t.stage {
		t.advance(fraction)
	}
	t.emit(message)
}

// Snapshot returns the current progress without emitting an event.
func (t *Tracker) Snapshot() model.ProgressEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.event("")
}

func (t *Tracker) detect(line string) (int, bool) {
	for _, s := range t.stages {
		if s.re != nil && s.re.MatchString(line) {
			return s.Index, true
		}
	}
	return 0, false
}

func (t *Tracker) advance(fraction float64) {
	if fraction < 0 {
		fraction = 0
	}
	if fraction >= 1 {
		fraction = MaxRunningProgress
	}
	if fraction > t.fraction {
		t.fraction = fraction
	}
}

func (t *Tracker) emit(message string) model.ProgressEvent {
	ev := t.event(message)
	t.sink(ev)
	return ev
}

func (t *Tracker) event(message string) model.ProgressEvent {
	idx := t.stage - 1
	s := t.stages[idx]
	total := t.base[idx] + s.Weight*t.fraction
	if total > MaxRunningProgress {
		total = MaxRunningProgress
	}
	return model.ProgressEvent{
		Step:          s.Index,
		StepName:      s.Name,
		Message:       message,
		Progress:      t.fraction,
		TotalProgress: total,
	}
}

// counterFraction converts an "[i/n]" counter into the fraction of items
// completed before item i.
func counterFraction(line string) (float64, bool) {
	m := counterRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	i, err1 := strconv.Atoi(m[1])
	n, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil || n <= 0 || i <= 0 {
		return 0, false
	}
	return float64(i-1) / float64(n), true
}

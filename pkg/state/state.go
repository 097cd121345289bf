package state

import (
	"sort"
	"time"
)

// StateDone is the frame state name that --resume skips.
const StateDone = "Done"

// FrameStatus is the persisted progress of one frame.
type FrameStatus struct {
	Index     int       `json:"index"`
	State     string    `json:"state"`
	Attempts  int       `json:"attempts"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`

	// Calibration fingerprints the reference artifacts the frame was built from
	Calibration string `json:"calibration,omitempty"`
}

// State is the persisted progress of one stage of a project.
type State struct {
	// RunID identifies the run that last wrote the file
	RunID string `json:"run_id"`

	// Stage is the pipeline stage ("calibrate" or "train")
	Stage string `json:"stage"`

	// Tool is the tool family that produced the frames' outputs
	Tool string `json:"tool"`

	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Frames maps a frame name to its status
	Frames map[string]FrameStatus `json:"frames"`
}

// IsEmpty returns true if no frame has been recorded.
func (s State) IsEmpty() bool {
	return len(s.Frames) == 0
}

// Done reports whether name finished successfully in a previous run.
func (s State) Done(name string) bool {
	return s.Frames[name].State == StateDone
}

// Record stores the status of a frame.
func (s *State) Record(name string, index int, frameState string, attempts int, err error) {
	if s.Frames == nil {
		s.Frames = make(map[string]FrameStatus)
	}
	now := time.Now().UTC()
	fs := FrameStatus{
		Index:     index,
		State:     frameState,
		Attempts:  attempts,
		UpdatedAt: now,
	}
	if err != nil {
		fs.Error = err.Error()
	}
	s.Frames[name] = fs
	s.UpdatedAt = now
}

// SetCalibration stores the reference fingerprint of a recorded frame.
func (s *State) SetCalibration(name, fingerprint string) {
	fs, ok := s.Frames[name]
	if !ok {
		return
	}
	fs.Calibration = fingerprint
	s.Frames[name] = fs
}

// Names returns the recorded frame names ordered by index.
func (s State) Names() []string {
	names := make([]string, 0, len(s.Frames))
	for n := range s.Frames {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := s.Frames[names[i]], s.Frames[names[j]]
		if a.Index != b.Index {
			return a.Index < b.Index
		}
		return names[i] < names[j]
	})
	return names
}

// Counts tallies frames by state name.
func (s State) Counts() map[string]int {
	out := make(map[string]int)
	for _, f := range s.Frames {
		out[f.State]++
	}
	return out
}

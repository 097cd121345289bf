package domain

// Artifact is one calibration output of the reference frame.
type Artifact struct {
	// Name identifies the artifact in logs and errors (e.g. "cameras.bin")
	Name string

	// Source is the absolute path inside the reference frame
	Source string

	// Dest is the path relative to the receiving frame's root
	Dest string
}

// ArtifactSet is the ordered list of artifacts copied into every subsequent frame.
type ArtifactSet []Artifact

// Names returns the artifact names in order.
func (s ArtifactSet) Names() []string {
	names := make([]string, len(s))
	for i, a := range s {
		names[i] = a.Name
	}
	return names
}

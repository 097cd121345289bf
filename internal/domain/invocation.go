package domain

import "time"

// Invocation records one external tool call.
type Invocation struct {
	Argv       []string
	WorkingDir string
	Stdout     []string
	Stderr     []string
	ExitCode   int
	Duration   time.Duration
}

// Succeeded reports whether the tool exited with status zero.
func (i Invocation) Succeeded() bool {
	return i.ExitCode == 0
}

// Tail returns at most the last n lines of lines.
func Tail(lines []string, n int) []string {
	if n <= 0 || len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}

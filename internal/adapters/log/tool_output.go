// Package log adapts the structured logger to the process runner's line sink.
package log

import (
	"github.com/bft-labs/volumetrize/internal/ports"
)

// ToolOutput returns a line sink that logs each child-process line at info
// level, tagged with the frame, the tool step and the stream it came from.
func ToolOutput(logger ports.Logger, frame, step string) ports.LineSink {
	return func(stream ports.Stream, line string) {
		logger.Info(line,
			ports.String("frame", frame),
			ports.String("tool", step),
			ports.String("stream", string(stream)),
		)
	}
}

// Tee fans a line out to every non-nil sink in order.
func Tee(sinks ...ports.LineSink) ports.LineSink {
	return func(stream ports.Stream, line string) {
		for _, s := range sinks {
			if s != nil {
				s(stream, line)
			}
		}
	}
}

package log

import "time"

// Logger is the structured logger threaded through the scheduler, the
// process runner and the adapters. Frame and step names travel as fields,
// never inside the message.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field is one key/value pair attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}

func String(key, value string) Field { return Field{Key: key, Value: value} }

// Strings carries argv vectors and captured output tails.
func Strings(key string, value []string) Field { return Field{Key: key, Value: value} }

func Int(key string, value int) Field { return Field{Key: key, Value: value} }

func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }

// Duration carries step timings and retry delays.
func Duration(key string, value time.Duration) Field { return Field{Key: key, Value: value} }

// Err attaches err under the "error" key.
func Err(err error) Field { return Field{Key: "error", Value: err} }

// Package sink provides detector.ResultSink implementations: an in-memory
// recorder, a function adapter, a log writer, fan-out and MQTT publishing.
package sink

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/condition-detector-mcp/internal/detector"
)

// NamedSink receives results labeled with the condition that produced them.
type NamedSink interface {
	Publish(name string, res detector.Result) error
}

// Recorder keeps the most recent result and counts deliveries.
type Recorder struct {
	mu    sync.Mutex
	last  detector.Result
	count int
}

func (r *Recorder) Deliver(res detector.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = res
	r.count++
}

// Last returns the most recent result, or false if none was delivered.
func (r *Recorder) Last() (detector.Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.count > 0
}

func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Func adapts a function to detector.ResultSink.
type Func func(detector.Result)

func (f Func) Deliver(res detector.Result) { f(res) }

// Log writes each result to a logger. Matches are logged at info, misses at
// debug.
type Log struct {
	entry *logrus.Entry
}

func NewLog(entry *logrus.Entry) *Log {
	return &Log{entry: entry}
}

func (l *Log) Deliver(res detector.Result) {
	l.fields(res).Debug("Detection result")
}

// Publish logs res under name and never fails.
func (l *Log) Publish(name string, res detector.Result) error {
	e := l.fields(res).WithField("condition", name)
	if res.Found {
		e.Info("Condition detected")
	} else {
		e.Debug("Condition not detected")
	}
	return nil
}

func (l *Log) fields(res detector.Result) *logrus.Entry {
	fields := logrus.Fields{
		"found":      res.Found,
		"x":          res.X,
		"y":          res.Y,
		"confidence": res.Confidence,
		"candidates": res.Candidates,
	}
	if res.Reason != "" {
		fields["reason"] = res.Reason
	}
	return l.entry.WithFields(fields)
}

// Multi delivers every result to each of its sinks in order.
type Multi []detector.ResultSink

// NewMulti builds a Multi, dropping nil sinks.
func NewMulti(sinks ...detector.ResultSink) Multi {
	m := make(Multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}

func (m Multi) Deliver(res detector.Result) {
	for _, s := range m {
		s.Deliver(res)
	}
}

// MultiNamed publishes to each of its sinks and returns the first error.
// Every sink is tried even when an earlier one fails.
type MultiNamed []NamedSink

func (m MultiNamed) Publish(name string, res detector.Result) error {
	var first error
	for _, s := range m {
		if err := s.Publish(name, res); err != nil && first == nil {
			first = err
		}
	}
	return first
}

package service

import (
	"context"
	"time"

	"github.com/noah-isme/unigrading-api/pkg/config"
)

// Operation names a simulated-latency write.
type Operation string

const (
	OpRegister        Operation = "register"
	OpCreateClassroom Operation = "create_classroom"
	OpAddStudent      Operation = "add_student"
	OpAssignGrade     Operation = "assign_grade"
)

// Latency waits before a write to pace the demo. The zero value never waits.
type Latency struct {
	cfg config.LatencyConfig
}

// NewLatency builds a latency from configuration.
func NewLatency(cfg config.LatencyConfig) Latency {
	return Latency{cfg: cfg}
}

// For returns the delay for op.
func (l Latency) For(op Operation) time.Duration {
	var d time.Duration
	switch op {
	case OpRegister:
		d = l.cfg.Register
	case OpCreateClassroom, OpAddStudent:
		d = l.cfg.Classroom
	case OpAssignGrade:
		d = l.cfg.Grade
	}
	if d <= 0 {
		d = l.cfg.Default
	}
	return d
}

// Wait blocks for op's delay. It returns ctx.Err() if ctx ends first, in which case the caller
// must not write.
func (l Latency) Wait(ctx context.Context, op Operation) error {
	d := l.For(op)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package enrollment

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"regdesk/internal/biometric"
)

const artifactDisplaySize = 16

// logSubmitter wraps a Submitter with logging of every request.
type logSubmitter struct {
	sub    Submitter
	logger *zap.Logger
}

// NewLogSubmitter creates a logging decorator for a Submitter.
// Fingerprint artifacts are redacted to their length.
func NewLogSubmitter(sub Submitter, logger *zap.Logger) Submitter {
	return &logSubmitter{sub: sub, logger: logger}
}

func (l *logSubmitter) AddStudent(ctx context.Context, req Request) (student *Student, err error) {
	start := time.Now()

	l.logger.Info("AddStudent started",
		zap.String("roll_no", req.RollNo),
		zap.String("class", req.Class),
		zap.String("fingerprint1", redactArtifact(req.Fingerprint1)),
		zap.String("fingerprint2", redactArtifact(req.Fingerprint2)),
	)

	defer func() {
		duration := time.Since(start)
		if err != nil {
			l.logger.Error("AddStudent failed",
				zap.String("roll_no", req.RollNo),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
			return
		}
		fields := []zap.Field{zap.String("roll_no", req.RollNo), zap.Duration("duration", duration)}
		if student != nil {
			fields = append(fields, zap.Int64("dept_id", student.DeptID))
		}
		l.logger.Info("AddStudent completed", fields...)
	}()

	return l.sub.AddStudent(ctx, req)
}

// logCapturer wraps a Capturer with logging of every ceremony.
type logCapturer struct {
	c      Capturer
	logger *zap.Logger
}

// NewLogCapturer creates a logging decorator for a Capturer.
func NewLogCapturer(c Capturer, logger *zap.Logger) Capturer {
	return &logCapturer{c: c, logger: logger}
}

func (l *logCapturer) Capture(ctx context.Context, slot biometric.Slot) (biometric.Artifact, error) {
	start := time.Now()
	artifact, err := l.c.Capture(ctx, slot)
	l.done("Capture", slot, start, artifact, err)
	return artifact, err
}

func (l *logCapturer) CaptureAs(ctx context.Context, slot biometric.Slot, user biometric.UserIdentity) (biometric.Artifact, error) {
	start := time.Now()
	artifact, err := l.c.CaptureAs(ctx, slot, user)
	l.done("CaptureAs", slot, start, artifact, err)
	return artifact, err
}

func (l *logCapturer) done(method string, slot biometric.Slot, start time.Time, artifact biometric.Artifact, err error) {
	duration := time.Since(start)
	if err != nil {
		l.logger.Warn(method+" failed",
			zap.Int("slot", int(slot)),
			zap.String("kind", biometric.KindOf(err).String()),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return
	}
	l.logger.Info(method+" completed",
		zap.Int("slot", int(slot)),
		zap.String("artifact", redactArtifact(artifact.Data)),
		zap.Duration("duration", duration),
	)
}

func redactArtifact(data string) string {
	if data == "" {
		return "<empty>"
	}
	if len(data) > artifactDisplaySize {
		return fmt.Sprintf("%s... (%d chars)", data[:8], len(data))
	}
	return fmt.Sprintf("<%d chars>", len(data))
}

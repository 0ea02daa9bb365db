package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingLogger struct {
	lines []string
}

func (r *recordingLogger) Debugf(template string, args ...any) { r.lines = append(r.lines, "debug:"+template) }
func (r *recordingLogger) Infof(template string, args ...any)  { r.lines = append(r.lines, "info:"+template) }
func (r *recordingLogger) Warnf(template string, args ...any)  { r.lines = append(r.lines, "warn:"+template) }
func (r *recordingLogger) Errorf(template string, args ...any) { r.lines = append(r.lines, "error:"+template) }

func TestSetDefaultSwapsPackageLevelLogger(t *testing.T) {
	original := Default()
	defer SetDefault(original)

	rec := &recordingLogger{}
	SetDefault(rec)

	Infof("connecting to %s", "peer")
	Warnf("retrying")

	assert.Equal(t, []string{"info:connecting to %s", "warn:retrying"}, rec.lines)
}

func TestToZapLevelDefaultsToInfoOnUnknown(t *testing.T) {
	assert.Equal(t, toZapLevel("bogus"), toZapLevel("info"))
}

func TestNewBuildsStdoutLogger(t *testing.T) {
	l := New(Options{Stdout: true, Level: "debug"})
	assert.NotPanics(t, func() { l.Debugf("hello %d", 1) })
}

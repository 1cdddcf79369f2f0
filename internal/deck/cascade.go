package deck

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Phase is a step of the reload cascade.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCheckingSettings
	PhaseReloadingSettings
	PhaseCheckingManifest
	PhaseReloadingManifest
	PhaseCommitted
	PhaseBroken
)

var phaseNames = [...]string{
	PhaseIdle:              "idle",
	PhaseCheckingSettings:  "checking_settings",
	PhaseReloadingSettings: "reloading_settings",
	PhaseCheckingManifest:  "checking_manifest",
	PhaseReloadingManifest: "reloading_manifest",
	PhaseCommitted:         "committed",
	PhaseBroken:            "broken",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// Cascade is the record of one ForceReload.
type Cascade struct {
	ID       uuid.UUID
	Started  time.Time
	Duration time.Duration
	Trace    []Phase

	SettingsReloaded bool
	ManifestReloaded bool
	FullReset        bool

	// Reloaded counts assets loaded by this cascade.
	Reloaded int
	Assets   int
	Loaded   int

	Err error
}

// Failed reports whether the cascade ended broken.
func (c Cascade) Failed() bool {
	return c.Err != nil
}

// Outcome is the final phase name.
func (c Cascade) Outcome() string {
	if len(c.Trace) == 0 {
		return PhaseIdle.String()
	}
	return c.Trace[len(c.Trace)-1].String()
}

// TraceString joins the phase names with ">".
func (c Cascade) TraceString() string {
	names := make([]string, len(c.Trace))
	for i, p := range c.Trace {
		names[i] = p.String()
	}
	return strings.Join(names, ">")
}

// ErrorText returns the failure message, or "" on success.
func (c Cascade) ErrorText() string {
	if c.Err == nil {
		return ""
	}
	return c.Err.Error()
}

// Changed reports whether the cascade loaded content or committed a settings,
// manifest or game reset. A failed retry of the same broken state is not a
// change.
func (c Cascade) Changed() bool {
	if c.Reloaded > 0 {
		return true
	}
	return c.Err == nil && (c.SettingsReloaded || c.ManifestReloaded || c.FullReset)
}

// Journal persists cascade records.
type Journal interface {
	RecordCascade(project string, c Cascade) error
}

// Observer is told about every finished cascade.
type Observer interface {
	CascadeFinished(project string, c Cascade)
}

// ScreenListener is notified of the new canvas size before the render
// surface is reallocated.
type ScreenListener interface {
	OnScreenChange(width, height int)
}

// ScreenFunc adapts a function to ScreenListener.
type ScreenFunc func(width, height int)

func (f ScreenFunc) OnScreenChange(width, height int) {
	f(width, height)
}

package production

import "fmt"

// Event names a stage-machine trigger.
type Event string

const (
	// EventScriptRequested moves a fresh job into script generation.
	EventScriptRequested Event = "script_requested"
	// EventScriptReady records a script artifact, whether generated, cached,
	// or carried over from a previous run.
	EventScriptReady Event = "script_ready"
	// EventMediaStarted begins the fanned-out media generation stage.
	EventMediaStarted Event = "media_started"
	// EventMediaReady records that all media tasks settled and segments merged.
	EventMediaReady Event = "media_ready"
	// EventThumbnailStarted begins thumbnail generation.
	EventThumbnailStarted Event = "thumbnail_started"
	// EventCompleted finishes the job. Valid from ThumbnailPending, or
	// directly from MediaReady when usable thumbnails already exist.
	EventCompleted Event = "completed"
	// EventFailed aborts the job from any non-terminal state.
	EventFailed Event = "failed"
	// EventResumed re-enters the stage machine from Failed; completed stages
	// are skipped based on artifacts already present on the job.
	EventResumed Event = "resumed"
	// EventRegenerated restarts a completed job for explicit regeneration.
	EventRegenerated Event = "regenerated"
)

var transitions = map[Status]map[Event]Status{
	StatusCreated: {
		EventScriptRequested: StatusScriptPending,
		EventScriptReady:     StatusScriptReady,
		EventFailed:          StatusFailed,
	},
	StatusScriptPending: {
		EventScriptReady: StatusScriptReady,
		EventFailed:      StatusFailed,
	},
	StatusScriptReady: {
		EventMediaStarted: StatusMediaGenerating,
		EventFailed:       StatusFailed,
	},
	StatusMediaGenerating: {
		EventMediaReady: StatusMediaReady,
		EventFailed:     StatusFailed,
	},
	StatusMediaReady: {
		EventThumbnailStarted: StatusThumbnailPending,
		EventCompleted:        StatusCompleted,
		EventFailed:           StatusFailed,
	},
	StatusThumbnailPending: {
		EventCompleted: StatusCompleted,
		EventFailed:    StatusFailed,
	},
	StatusCompleted: {
		EventRegenerated: StatusCreated,
	},
	StatusFailed: {
		EventResumed: StatusCreated,
	},
}

// Transition validates a stage-machine move and returns the next status.
func Transition(current Status, event Event) (Status, error) {
	byEvent, ok := transitions[current]
	if !ok {
		return "", fmt.Errorf("unknown status %q", current)
	}
	next, ok := byEvent[event]
	if !ok {
		return "", fmt.Errorf("illegal transition: %s does not accept %s", current, event)
	}
	return next, nil
}

// Apply performs a validated transition on the job in place.
func (j *Job) Apply(event Event) error {
	next, err := Transition(j.Status, event)
	if err != nil {
		return err
	}
	j.Status = next
	return nil
}

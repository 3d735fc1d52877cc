package production

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a production job.
type Status string

const (
	StatusCreated          Status = "created"
	StatusScriptPending    Status = "script_pending"
	StatusScriptReady      Status = "script_ready"
	StatusMediaGenerating  Status = "media_generating"
	StatusMediaReady       Status = "media_ready"
	StatusThumbnailPending Status = "thumbnail_pending"
	StatusCompleted        Status = "completed"
	StatusFailed           Status = "failed"
)

var allStatuses = []Status{
	StatusCreated,
	StatusScriptPending,
	StatusScriptReady,
	StatusMediaGenerating,
	StatusMediaReady,
	StatusThumbnailPending,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether no further stage runs from this status.
// A failed job remains resumable, but only through an explicit resume.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ScriptLine is a single line of the generated script.
type ScriptLine struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Segment pairs a script line with its generated audio and optional video.
type Segment struct {
	Speaker  string `json:"speaker"`
	Text     string `json:"text"`
	AudioRef string `json:"audio_ref"`
	VideoRef string `json:"video_ref,omitempty"`
}

// Metadata holds the publish metadata generated for a job.
type Metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// VideoAssets collects generated video URLs: a wide/background list plus an
// ordered list per presenter role.
type VideoAssets struct {
	Wide  []string            `json:"wide,omitempty"`
	Roles map[string][]string `json:"roles,omitempty"`
}

// Empty reports whether no video has been attached yet.
func (v VideoAssets) Empty() bool {
	return len(v.Wide) == 0 && len(v.Roles) == 0
}

// Job is a production job persisted across stages so interrupted runs can
// resume from the last checkpoint.
type Job struct {
	ID              string
	ChannelID       string
	UserID          string
	DateKey         string
	Status          Status
	CurrentStep     int
	SelectedItemIDs []string
	Script          []ScriptLine
	ViralHook       string
	Metadata        *Metadata
	Segments        []Segment
	Videos          VideoAssets
	ThumbnailURLs   []string
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}

// SetSelection stores the selected item ids, dropping duplicates while
// preserving first-seen order.
func (j *Job) SetSelection(ids []string) {
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	j.SelectedItemIDs = unique
}

// SetFailed marks the job as failed with the given message.
func (j *Job) SetFailed(message string) {
	j.Status = StatusFailed
	j.ErrorMessage = message
}

// HasScript reports whether a script artifact already exists on the job.
func (j *Job) HasScript() bool {
	return len(j.Script) > 0
}

// HasAudio reports whether every script line already has generated audio.
func (j *Job) HasAudio() bool {
	if len(j.Segments) != len(j.Script) || len(j.Segments) == 0 {
		return false
	}
	for _, segment := range j.Segments {
		if segment.AudioRef == "" {
			return false
		}
	}
	return true
}

// HasVideos reports whether any per-role or wide video has been produced.
func (j *Job) HasVideos() bool {
	return !j.Videos.Empty()
}

// HasMetadata reports whether publish metadata exists with a usable title.
func (j *Job) HasMetadata() bool {
	return j.Metadata != nil && strings.TrimSpace(j.Metadata.Title) != ""
}

// HasThumbnails reports whether usable thumbnails already exist on the job.
func (j *Job) HasThumbnails() bool {
	return len(j.ThumbnailURLs) > 0
}

// Clone returns a deep copy of the job, safe to hand to a checkpoint writer.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	cp.SelectedItemIDs = append([]string(nil), j.SelectedItemIDs...)
	cp.Script = append([]ScriptLine(nil), j.Script...)
	cp.Segments = append([]Segment(nil), j.Segments...)
	cp.ThumbnailURLs = append([]string(nil), j.ThumbnailURLs...)
	cp.Videos.Wide = append([]string(nil), j.Videos.Wide...)
	if j.Videos.Roles != nil {
		cp.Videos.Roles = make(map[string][]string, len(j.Videos.Roles))
		for role, urls := range j.Videos.Roles {
			cp.Videos.Roles[role] = append([]string(nil), urls...)
		}
	}
	if j.Metadata != nil {
		meta := *j.Metadata
		meta.Tags = append([]string(nil), j.Metadata.Tags...)
		cp.Metadata = &meta
	}
	if j.CompletedAt != nil {
		completed := *j.CompletedAt
		cp.CompletedAt = &completed
	}
	return &cp
}

// DedupeURLs removes duplicate URLs while preserving first-seen order.
func DedupeURLs(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, url := range urls {
		if url == "" {
			continue
		}
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		out = append(out, url)
	}
	return out
}

package resolve

import (
	"fmt"

	"github.com/hazyhaar/dupefinder/pkg/catalog"
)

// Reason is the language-neutral code of a failed resolution.
type Reason string

const (
	ReasonEmptyQuery Reason = "EMPTY_QUERY"
	ReasonBrandOnly  Reason = "BRAND_ONLY"
	ReasonNotFound   Reason = "NOT_FOUND"
)

// Note is the language-neutral caveat attached to a successful resolution.
type Note string

const (
	NoteFuzzy         Note = "FUZZY_CAVEAT"
	NoteCloneRedirect Note = "CLONE_REDIRECT_CAVEAT"
)

// Stage identifies the cascade stage that decided an outcome.
type Stage int

const (
	StageEmpty Stage = iota
	StageExact
	StageReversed
	StageName
	StageClone
	StageBrand
	StageFuzzy
	StageNotFound

	stageCount
)

var stageNames = [stageCount]string{
	StageEmpty:    "empty",
	StageExact:    "exact",
	StageReversed: "reversed",
	StageName:     "name",
	StageClone:    "clone",
	StageBrand:    "brand",
	StageFuzzy:    "fuzzy",
	StageNotFound: "not_found",
}

func (s Stage) String() string {
	if s < 0 || s >= stageCount {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// MarshalText encodes the stage by name in JSON and YAML.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Outcome is the tagged result of one resolution. Exactly one of Original and
// Reason is set: a success carries the original and an optional Note, a
// failure carries a Reason (and, for BRAND_ONLY, the matched brand).
type Outcome struct {
	Original *catalog.Original `json:"original,omitempty"`
	Note     Note              `json:"note,omitempty"`

	Reason Reason `json:"reason,omitempty"`
	Brand  string `json:"brand,omitempty"`

	// Clone is the clone that redirected to Original at the clone stage.
	Clone *catalog.Clone `json:"clone,omitempty"`

	Stage Stage   `json:"stage"`
	Score float64 `json:"score"`
	Lang  string  `json:"lang,omitempty"`
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool { return o.Original != nil }

// Status is a short label for logs and the query log: "ok" or the reason code.
func (o Outcome) Status() string {
	if o.OK() {
		return "ok"
	}
	return string(o.Reason)
}

func success(o catalog.Original, note Note, stage Stage, score float64) Outcome {
	return Outcome{Original: &o, Note: note, Stage: stage, Score: score}
}

func failure(reason Reason, stage Stage) Outcome {
	return Outcome{Reason: reason, Stage: stage}
}

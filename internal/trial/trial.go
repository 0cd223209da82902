package trial

import (
	"errors"
	"fmt"
)

var ErrUnknownTrial = errors.New("unknown trial")

// ID identifies a trial. The set of identifiers is fixed at build time.
type ID string

const (
	Prologue ID = "prologue"
	Taxonomy ID = "taxonomy"
	Trap     ID = "trap"
	Pharmacy ID = "pharmacy"
	Granary  ID = "granary"
	Dye      ID = "dye"
	River    ID = "river"
	Kuba     ID = "kuba"
	Rattan   ID = "rattan"
	Final    ID = "final"
)

var known = []ID{Prologue, Taxonomy, Trap, Pharmacy, Granary, Dye, River, Kuba, Rattan, Final}

// Known returns every trial identifier in declaration order.
func Known() []ID {
	out := make([]ID, len(known))
	copy(out, known)
	return out
}

func Parse(s string) (ID, error) {
	for _, id := range known {
		if string(id) == s {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTrial, s)
}

func (id ID) String() string { return string(id) }

type Kind string

const (
	KindMain     Kind = "main"
	KindSide     Kind = "side"
	KindPractice Kind = "practice"
)

type Lesson struct {
	Title string `toml:"title" json:"title"`
	Text  string `toml:"text" json:"text"`
}

type Trial struct {
	ID                ID                `toml:"id" json:"id"`
	Kind              Kind              `toml:"kind" json:"kind"`
	Title             string            `toml:"title" json:"title"`
	Subtitle          string            `toml:"subtitle" json:"subtitle"`
	Unscored          bool              `toml:"unscored" json:"unscored,omitempty"`
	SkipsEducation    bool              `toml:"skips_education" json:"skips_education,omitempty"`
	Terminal          bool              `toml:"terminal" json:"terminal,omitempty"`
	CompletionMessage string            `toml:"completion_message" json:"-"`
	Requires          []ID              `toml:"requires" json:"requires,omitempty"`
	Assets            map[string]string `toml:"assets" json:"assets,omitempty"`
	Lesson            *Lesson           `toml:"lesson" json:"-"`
}

// Scored reports whether completing the trial earns a timed score.
func (t Trial) Scored() bool { return !t.Unscored }

// Counted reports whether the trial is part of the progress denominator.
func (t Trial) Counted() bool { return t.Kind == KindMain }

// OnMap reports whether the trial has a node on the map.
func (t Trial) OnMap() bool { return t.Kind == KindMain || t.Kind == KindSide }

// AssetURLs returns the asset URLs in a stable order.
func (t Trial) AssetURLs() []string {
	return sortedValues(t.Assets)
}

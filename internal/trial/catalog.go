package trial

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/BurntSushi/toml"
)

//go:embed catalog.toml
var defaultCatalog []byte

var ErrInvalidCatalog = errors.New("invalid catalog")

// SharedAssets are assets not owned by a single trial.
type SharedAssets struct {
	LoginBackground string `toml:"login_bg" json:"login_bg"`
	Placeholder     string `toml:"placeholder" json:"placeholder"`
}

type catalogFile struct {
	Assets SharedAssets `toml:"assets"`
	Trials []Trial      `toml:"trial"`
}

// Catalog is the read-only trial lookup shared by every session.
type Catalog struct {
	trials   []Trial
	byID     map[ID]int
	shared   SharedAssets
	terminal ID
}

// Default returns the catalogue compiled into the binary.
func Default() *Catalog {
	c, err := Load(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded trial catalog: %v", err))
	}
	return c
}

func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Load(data)
}

func Load(data []byte) (*Catalog, error) {
	var f catalogFile
	if _, err := toml.Decode(string(data), &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{
		trials: f.Trials,
		byID:   make(map[ID]int, len(f.Trials)),
		shared: f.Assets,
	}
	for i, t := range c.trials {
		if _, err := Parse(string(t.ID)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate trial %q", ErrInvalidCatalog, t.ID)
		}
		switch t.Kind {
		case KindMain, KindSide, KindPractice:
		default:
			return nil, fmt.Errorf("%w: trial %q has invalid kind %q", ErrInvalidCatalog, t.ID, t.Kind)
		}
		if t.Terminal {
			if c.terminal != "" {
				return nil, fmt.Errorf("%w: more than one terminal trial", ErrInvalidCatalog)
			}
			c.terminal = t.ID
		}
		c.byID[t.ID] = i
	}
	if c.terminal == "" {
		return nil, fmt.Errorf("%w: no terminal trial", ErrInvalidCatalog)
	}

	for _, t := range c.trials {
		for _, req := range t.Requires {
			if req == t.ID {
				return nil, fmt.Errorf("%w: trial %q requires itself", ErrInvalidCatalog, t.ID)
			}
			if _, ok := c.byID[req]; !ok {
				return nil, fmt.Errorf("%w: trial %q requires unknown trial %q", ErrInvalidCatalog, t.ID, req)
			}
		}
	}
	return c, nil
}

func (c *Catalog) Get(id ID) (Trial, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Trial{}, false
	}
	return c.trials[i], true
}

// All returns the trials in catalogue order.
func (c *Catalog) All() []Trial {
	out := make([]Trial, len(c.trials))
	copy(out, c.trials)
	return out
}

// IDs returns the identifiers of every catalogued trial.
func (c *Catalog) IDs() []ID {
	out := make([]ID, 0, len(c.trials))
	for _, t := range c.trials {
		out = append(out, t.ID)
	}
	return out
}

// Counted returns the identifiers that make up the progress denominator.
func (c *Catalog) Counted() []ID {
	var out []ID
	for _, t := range c.trials {
		if t.Counted() {
			out = append(out, t.ID)
		}
	}
	return out
}

func (c *Catalog) Terminal() Trial {
	t, _ := c.Get(c.terminal)
	return t
}

// Lesson returns the education content shown after a trial is completed.
func (c *Catalog) Lesson(id ID) (Lesson, bool) {
	t, ok := c.Get(id)
	if !ok || t.Lesson == nil {
		return Lesson{}, false
	}
	return *t.Lesson, true
}

func (c *Catalog) Shared() SharedAssets { return c.shared }

func sortedValues(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

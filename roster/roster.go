package roster

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
)

const MaxNameLength = 30

var (
	ErrEmptyName   = errors.New("name is empty")
	ErrTooLong     = errors.New("name is too long")
	ErrDuplicate   = errors.New("name is already in the roster")
	ErrNotFound    = errors.New("name is not in the roster")
	ErrEmptyRoster = errors.New("roster is empty")
)

// Source yields values in [0, 1). math/rand.Float64 satisfies it.
type Source func() float64

// Roster is the ordered, duplicate-free list of participant names.
// The zero value is an empty roster ready for use.
type Roster struct {
	names []string
}

// New builds a roster from names in order. Names that Add would refuse
// (empty, too long, repeated) are skipped; use Restore to learn which.
func New(names ...string) *Roster {
	r := &Roster{}
	for _, n := range names {
		_ = r.Add(n)
	}
	return r
}

// Normalize trims a name and checks it against the length rules.
// It does not look at any roster.
func Normalize(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", ErrTooLong
	}
	return name, nil
}

func (r *Roster) Add(name string) error {
	name, err := Normalize(name)
	if err != nil {
		return err
	}
	if r.Contains(name) {
		return ErrDuplicate
	}
	r.names = append(r.names, name)
	return nil
}

func (r *Roster) Remove(name string) error {
	i := lo.IndexOf(r.names, name)
	if i < 0 {
		return ErrNotFound
	}
	r.names = append(r.names[:i:i], r.names[i+1:]...)
	return nil
}

func (r *Roster) Reset() {
	r.names = nil
}

// Draw picks a name uniformly without removing it.
func (r *Roster) Draw(src Source) (string, error) {
	count := len(r.names)
	if count == 0 {
		return "", ErrEmptyRoster
	}

	// a source returning exactly 1.0 would otherwise index past the end
	index := int(math.Floor(src() * float64(count)))
	if index >= count {
		index = count - 1
	}
	if index < 0 {
		index = 0
	}
	return r.names[index], nil
}

func (r *Roster) Contains(name string) bool {
	return lo.Contains(r.names, name)
}

func (r *Roster) Len() int {
	return len(r.names)
}

func (r *Roster) Empty() bool {
	return len(r.names) == 0
}

// Names returns a copy; callers may keep it.
func (r *Roster) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func (r *Roster) MarshalJSON() ([]byte, error) {
	names := r.names
	if names == nil {
		names = []string{}
	}
	return json.Marshal(names)
}

// UnmarshalJSON replaces the roster with a persisted snapshot. Entries which
// would break the roster invariants are dropped; see Restore.
func (r *Roster) UnmarshalJSON(j []byte) error {
	restored, _, err := Restore(j)
	if err != nil {
		return err
	}
	*r = *restored
	return nil
}

// Restore decodes a snapshot, re-adding every entry so that a hand-edited
// slot cannot smuggle in an invalid name. The rejected entries are returned.
func Restore(j []byte) (*Roster, []string, error) {
	var names []string
	err := json.Unmarshal(j, &names)
	if err != nil {
		return nil, nil, err
	}

	r := &Roster{}
	var rejected []string
	for _, n := range names {
		if err := r.Add(n); err != nil {
			rejected = append(rejected, n)
		}
	}
	return r, rejected, nil
}

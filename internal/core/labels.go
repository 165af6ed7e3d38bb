package core

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Label is the category assigned to a message
type Label string

const (
	LabelInterested    Label = "Interested"
	LabelMeetingBooked Label = "Meeting Booked"
	LabelNotInterested Label = "Not Interested"
	LabelSpam          Label = "Spam"
	LabelOutOfOffice   Label = "Out of Office"
)

var allLabels = []Label{
	LabelInterested,
	LabelMeetingBooked,
	LabelNotInterested,
	LabelSpam,
	LabelOutOfOffice,
}

var folder = cases.Fold()

// AllLabels returns the taxonomy in declaration order
func AllLabels() []Label {
	out := make([]Label, len(allLabels))
	copy(out, allLabels)
	return out
}

// Valid reports whether l is one of the taxonomy labels
func (l Label) Valid() bool {
	for _, known := range allLabels {
		if l == known {
			return true
		}
	}
	return false
}

// ParseLabel maps classifier output onto the taxonomy. Case, surrounding
// quotes and a trailing period are ignored.
func ParseLabel(raw string) (Label, error) {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "\"'`*")
	s = strings.TrimSuffix(s, ".")
	s = strings.Join(strings.Fields(s), " ")

	folded := folder.String(s)
	for _, l := range allLabels {
		if folder.String(string(l)) == folded {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidLabel, strings.TrimSpace(raw))
}

// LabelSet is a set of labels
type LabelSet map[Label]struct{}

// NewLabelSet parses names into a set, rejecting unknown labels
func NewLabelSet(names []string) (LabelSet, error) {
	set := make(LabelSet, len(names))
	for _, n := range names {
		l, err := ParseLabel(n)
		if err != nil {
			return nil, err
		}
		set[l] = struct{}{}
	}
	return set, nil
}

// Has reports whether l is in the set
func (s LabelSet) Has(l Label) bool {
	_, ok := s[l]
	return ok
}

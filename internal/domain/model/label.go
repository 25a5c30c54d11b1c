package model

import (
	"fmt"
	"strings"
)

// Label is the category tag of a graph entity. Only the values below are ever
// spliced into Cypher text.
type Label string

const (
	LabelFish    Label = "Fish"
	LabelFamily  Label = "Family"
	LabelGenus   Label = "Genus"
	LabelOrder   Label = "Order"
	LabelRegion  Label = "Region"
	LabelUnknown Label = "Unknown"
)

// KnownLabels lists the categories in resolution priority order.
var KnownLabels = []Label{LabelFish, LabelFamily, LabelGenus, LabelOrder, LabelRegion}

// PlaceholderName marks nodes that were imported without a real name.
const PlaceholderName = "Unnamed Node"

// nameField maps a category to the property that holds its display name.
// Categories not listed use "name".
var nameField = map[Label]string{
	LabelFish:   "name",
	LabelFamily: "name",
	LabelGenus:  "name",
	LabelOrder:  "name",
	LabelRegion: "region",
}

// ParseLabel validates a caller-supplied category against the closed set.
// Matching is case-insensitive; the canonical spelling is returned.
func ParseLabel(s string) (Label, error) {
	s = strings.TrimSpace(s)
	for _, l := range KnownLabels {
		if strings.EqualFold(s, string(l)) {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown node label %q", s)
}

// ParseLabels validates every entry and drops duplicates, keeping input order.
func ParseLabels(in []string) ([]Label, error) {
	out := make([]Label, 0, len(in))
	seen := make(map[Label]bool, len(in))
	for _, s := range in {
		l, err := ParseLabel(s)
		if err != nil {
			return nil, err
		}
		if seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out, nil
}

// ResolveLabel picks the category of a node from its database labels using
// KnownLabels priority. Nodes carrying none of them are Unknown.
func ResolveLabel(labels []string) Label {
	for _, want := range KnownLabels {
		for _, have := range labels {
			if have == string(want) {
				return want
			}
		}
	}
	return LabelUnknown
}

// ResolveName returns the display name of a node of the given category.
func ResolveName(label Label, props map[string]any) string {
	field, ok := nameField[label]
	if !ok {
		field = "name"
	}
	if v, ok := props[field]; ok && v != nil {
		if s := fmt.Sprint(v); s != "" {
			return s
		}
	}
	return string(LabelUnknown)
}

// LabelStrings converts labels for use as a bound query parameter.
func LabelStrings(labels []Label) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = string(l)
	}
	return out
}

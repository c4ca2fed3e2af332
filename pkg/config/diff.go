package config

import (
	"pushit/pkg/model"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Diff renders how effective differs from base as YAML text. Removed
// text is marked red and added text green. The boolean reports whether
// they differ at all.
func Diff(base, effective model.Settings) (string, bool, error) {
	before, err := Marshal(base)
	if err != nil {
		return "", false, err
	}
	after, err := Marshal(effective)
	if err != nil {
		return "", false, err
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	changed := false
	for _, d := range diffs {
		if d.Type != diffmatchpatch.DiffEqual {
			changed = true
			break
		}
	}
	return dmp.DiffPrettyText(diffs), changed, nil
}

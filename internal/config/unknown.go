package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

// profileSection is the table holding named profiles.
const profileSection = "profile"

// knownSectionKeys maps each global table to its valid keys.
var knownSectionKeys = map[string][]string{
	"transfers": {"chunk_size"},
	"tokens":    {"path", "store"},
	"logging":   {"log_level"},
	"network":   {"timeout", "user_agent"},
}

// knownProfileKeys are the valid keys inside a [profile.<name>] table.
var knownProfileKeys = []string{"api_host", "client_id", "client_secret", "hostname", "username"}

// knownSectionsList is the sorted list of top-level tables for Levenshtein
// matching. Sorted for deterministic suggestions when two candidates have
// the same edit distance.
var knownSectionsList = func() []string {
	keys := make([]string, 0, len(knownSectionKeys)+1)
	for k := range knownSectionKeys {
		keys = append(keys, k)
	}

	keys = append(keys, profileSection)
	sort.Strings(keys)

	return keys
}()

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with "did you mean?" suggestions for each unknown key.
func checkUnknownKeys(md *toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}

	var errs []error

	reported := make(map[string]bool)

	for _, key := range undecoded {
		id, err := buildKeyError(key)
		if err == nil || reported[id] {
			continue
		}

		reported[id] = true
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// buildKeyError describes one undecoded key. The returned id collapses the
// children of an unknown table into a single report.
func buildKeyError(key toml.Key) (string, error) {
	section := key[0]

	if section == profileSection {
		if len(key) < 3 {
			return "", nil
		}

		return key.String(), buildProfileKeyError(key[1], key[2])
	}

	fields, known := knownSectionKeys[section]
	if !known {
		if len(key) == 1 {
			if home := sectionForField(section); home != "" {
				return section, fmt.Errorf("unknown config key %q; did you mean %q?",
					section, home+"."+section)
			}
		}

		return section, suggestError(fmt.Sprintf("unknown config section %q", section),
			closestMatch(section, knownSectionsList))
	}

	if len(key) < 2 {
		return "", nil
	}

	field := key[1]
	suggestion := closestMatch(field, fields)

	if suggestion != "" {
		suggestion = section + "." + suggestion
	}

	return key.String(), suggestError(fmt.Sprintf("unknown config key %q", section+"."+field), suggestion)
}

func buildProfileKeyError(profile, field string) error {
	return suggestError(fmt.Sprintf("unknown key %q in profile %q", field, profile),
		closestMatch(field, knownProfileKeys))
}

// sectionForField returns the table a bare top-level key belongs in.
func sectionForField(field string) string {
	for _, section := range knownSectionsList {
		for _, k := range knownSectionKeys[section] {
			if k == field {
				return section
			}
		}
	}

	return ""
}

func suggestError(msg, suggestion string) error {
	if suggestion != "" {
		return fmt.Errorf("%s; did you mean %q?", msg, suggestion)
	}

	return errors.New(msg)
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		d := levenshtein(unknown, k)
		if d < bestDist {
			bestDist = d
			best = k
		}
	}

	if bestDist <= maxLevenshteinDistance {
		return best
	}

	return ""
}

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	// Single-row optimization avoids allocating a full matrix.
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = min(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}

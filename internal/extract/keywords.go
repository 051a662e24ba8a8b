package extract

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// KeywordSource supplies the custom keywords to look for.
type KeywordSource interface {
	Keywords() ([]string, error)
}

// KeywordFile reads a line-delimited keyword list from disk.
// The file is read on every call so it can be edited while a run is going.
// A missing file means no keywords.
type KeywordFile string

// Keywords implements KeywordSource.
func (f KeywordFile) Keywords() ([]string, error) {
	if f == "" {
		return nil, nil
	}
	file, err := os.Open(string(f))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close() //nolint:errcheck // read-only

	var out []string
	sc := bufio.NewScanner(file)
	for sc.Scan() {
		if kw := normalizeKeyword(sc.Text()); kw != "" {
			out = append(out, kw)
		}
	}
	return out, sc.Err()
}

// KeywordList is a fixed keyword list.
type KeywordList []string

// Keywords implements KeywordSource.
func (l KeywordList) Keywords() ([]string, error) {
	out := make([]string, 0, len(l))
	for _, kw := range l {
		if kw = normalizeKeyword(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out, nil
}

// toLower applies Unicode lowercasing. A Caser is stateful, so one is made per call.
func toLower(s string) string {
	return cases.Lower(language.Und).String(s)
}

func normalizeKeyword(s string) string {
	return toLower(strings.TrimSpace(s))
}

// wordPattern matches runs of letters, digits and underscores in any script.
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Tokenize lowercases text and counts its words.
func Tokenize(text string) map[string]int {
	counts := make(map[string]int)
	for _, w := range wordPattern.FindAllString(toLower(text), -1) {
		counts[w]++
	}
	return counts
}

// MatchKeywords returns the keywords that occur as substrings of the
// normalized text, in keyword order. Duplicated keywords are reported once.
func MatchKeywords(normalized string, keywords []string) []string {
	var hits []string
	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		if strings.Contains(normalized, kw) {
			hits = append(hits, kw)
		}
	}
	return hits
}

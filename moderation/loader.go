package moderation

import (
	"bufio"
	"io/fs"
	"path"
	"sort"
	"strings"

	"pair-chat/errors"
)

// WordList carries the result of the loading process including metadata for logging.
type WordList struct {
	Words     []string
	Languages []string
}

// LoadWords scans dir in fsys, treating every .txt file as one language
// dictionary (e.g. "fr.txt"), and merges the extra words into a unique list.
func LoadWords(fsys fs.FS, dir string, extra ...string) (*WordList, error) {
	unique := make(map[string]struct{})
	var languages []string

	if dir != "" {
		entries, err := fs.ReadDir(fsys, dir)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
				continue
			}
			languages = append(languages, strings.TrimSuffix(entry.Name(), ".txt"))
			if err := readWords(fsys, path.Join(dir, entry.Name()), unique); err != nil {
				return nil, err
			}
		}
	}
	for _, w := range extra {
		if w = strings.TrimSpace(w); w != "" {
			unique[w] = struct{}{}
		}
	}
	if len(unique) == 0 {
		return nil, errors.ErrEmptyWords
	}

	words := make([]string, 0, len(unique))
	for w := range unique {
		words = append(words, w)
	}
	sort.Strings(words)
	return &WordList{Words: words, Languages: languages}, nil
}

func readWords(fsys fs.FS, name string, into map[string]struct{}) error {
	f, err := fsys.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	// Scanner handles \n and \r\n line endings alike
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			into[line] = struct{}{}
		}
	}
	return scanner.Err()
}

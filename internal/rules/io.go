package rules

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/chibuenyim/Agentic-Toolkit/internal/filelock"
)

// ruleFile is the on-disk rule set.
type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// Export writes every rule, enabled or not, as YAML.
func (e *Engine) Export(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(ruleFile{Rules: e.Rules()}); err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}
	return enc.Close()
}

// Import adds or replaces the rules in a YAML document, keeping each
// rule's enabled flag. Nothing is imported if any rule is invalid.
func (e *Engine) Import(r io.Reader) (int, error) {
	var rf ruleFile
	if err := yaml.NewDecoder(r).Decode(&rf); err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("decode rules: %w", err)
	}
	for i := range rf.Rules {
		if err := rf.Rules[i].Validate(); err != nil {
			return 0, err
		}
	}
	for _, rule := range rf.Rules {
		enabled := rule.Enabled
		if err := e.Add(rule); err != nil {
			return 0, err
		}
		if !enabled {
			if err := e.Disable(rule.ID); err != nil {
				return 0, err
			}
		}
	}
	return len(rf.Rules), nil
}

// LoadFile imports rules from path. A missing file imports nothing.
func (e *Engine) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("open rules file: %w", err)
	}
	defer f.Close()
	n, err := e.Import(f)
	if err != nil {
		return 0, fmt.Errorf("load rules %s: %w", path, err)
	}
	return n, nil
}

// SaveFile exports the rules to path atomically.
func (e *Engine) SaveFile(path string) error {
	data, err := yaml.Marshal(ruleFile{Rules: e.Rules()})
	if err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}
	return filelock.AtomicWrite(path, data)
}

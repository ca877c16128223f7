package accountmap

import (
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// File is the on-disk shape of an account map override.
type File struct {
	Aliases []Alias `yaml:"aliases"`
	Rules   []Rule  `yaml:"rules"`
}

// Parse decodes an account map YAML document into rules.
func Parse(data []byte) ([]Rule, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "accountmap: parse yaml")
	}
	rules := FromAliases(f.Aliases)
	for _, r := range f.Rules {
		if r.StdKey == "" || r.PatternRaw == "" {
			return nil, eris.Errorf("accountmap: rule for scope %q needs std_key and pattern", r.Scope)
		}
		if !r.Scope.IsStatement() {
			return nil, eris.Errorf("accountmap: rule %s has non-statement scope %q", r.StdKey, r.Scope)
		}
		rules = append(rules, r)
	}
	for _, a := range f.Aliases {
		if !a.Scope.IsStatement() {
			return nil, eris.Errorf("accountmap: alias %s has non-statement scope %q", a.StdKey, a.Scope)
		}
	}
	return rules, nil
}

// Load builds the default map extended with the rules in path. An empty
// path yields the defaults.
func Load(path string) (*Map, error) {
	rules := FromAliases(DefaultAliases)
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "accountmap: read %s", path)
		}
		extra, err := Parse(data)
		if err != nil {
			return nil, err
		}
		rules = append(rules, extra...)
	}

	m := New(rules)
	zap.L().Info("accountmap: loaded",
		zap.String("path", path),
		zap.Int("rules", m.Len()),
		zap.Int("keys", len(m.Keys())),
	)
	return m, nil
}

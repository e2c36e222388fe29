package rules

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jujuqa/matrix/internal/engineerr"
)

// suiteDoc mirrors the on-disk suite spec: {fmt: int, tests: [...]}.
type suiteDoc struct {
	Fmt   int       `yaml:"fmt"`
	Tests []testDoc `yaml:"tests"`
}

type testDoc struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Rules       []ruleDoc `yaml:"rules"`
}

// ruleDoc is the flexible on-disk rule shape. `do` may be a bare command
// string or a mapping with at least `task`; condition keys are a fixed,
// known set rather than an open map, matching the typed-registry design
// adopted in place of the source's dynamic dispatch.
type ruleDoc struct {
	Do       yaml.Node `yaml:"do"`
	Gating   *bool     `yaml:"gating"`
	When     string    `yaml:"when"`
	After    string    `yaml:"after"`
	Until    string    `yaml:"until"`
	While    string    `yaml:"while"`
	On       string    `yaml:"on"`
	Periodic string    `yaml:"periodic"`
}

type doDoc struct {
	Task string                 `yaml:"task"`
	Args map[string]interface{} `yaml:"args"`
}

// ParseSuite parses one suite YAML document. A rule with no `do` clause
// is a ParseError, aborting the whole load.
func ParseSuite(data []byte) (Suite, error) {
	var doc suiteDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Suite{}, &engineerr.ParseError{Where: "suite", Err: err}
	}

	suite := Suite{Fmt: doc.Fmt}
	for _, td := range doc.Tests {
		test := Test{Name: td.Name, Description: td.Description}
		for _, rd := range td.Rules {
			rule, err := parseRule(rd)
			if err != nil {
				return Suite{}, err
			}
			test.Rules = append(test.Rules, rule)
		}
		suite.Tests = append(suite.Tests, test)
	}
	return suite, nil
}

func parseRule(rd ruleDoc) (Rule, error) {
	task, err := parseTask(rd)
	if err != nil {
		return Rule{}, err
	}

	rule := Rule{Task: task}
	add := func(mode Mode, statement string) {
		if statement != "" {
			rule.Conditions = append(rule.Conditions, Condition{Mode: mode, Statement: statement})
		}
	}
	add(When, rd.When)
	add(After, rd.After)
	add(Until, rd.Until)
	add(While, rd.While)
	add(On, rd.On)
	add(Periodic, rd.Periodic)

	return rule, nil
}

func parseTask(rd ruleDoc) (Task, error) {
	gating := true
	if rd.Gating != nil {
		gating = *rd.Gating
	}

	if rd.Do.Kind == 0 {
		return Task{}, &engineerr.ParseError{Where: "rule", Err: engineerr.ErrNoDoClause}
	}

	switch rd.Do.Kind {
	case yaml.ScalarNode:
		cmd := strings.TrimSpace(rd.Do.Value)
		if cmd == "" {
			return Task{}, &engineerr.ParseError{Where: "rule", Err: engineerr.ErrNoDoClause}
		}
		return Task{Command: cmd, Gating: gating}, nil
	case yaml.MappingNode:
		var d doDoc
		if err := rd.Do.Decode(&d); err != nil {
			return Task{}, &engineerr.ParseError{Where: "rule.do", Err: err}
		}
		if d.Task == "" {
			return Task{}, &engineerr.ParseError{Where: "rule", Err: engineerr.ErrNoDoClause}
		}
		return Task{Command: d.Task, Args: d.Args, Gating: gating}, nil
	default:
		return Task{}, &engineerr.ParseError{Where: "rule.do", Err: engineerr.ErrNoDoClause}
	}
}

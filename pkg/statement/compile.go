package statement

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/txn2/mcp-toolbox/pkg/toolerr"
)

// UnusedPolicy decides what happens to declared parameters that no
// placeholder consumes.
type UnusedPolicy string

// Unused parameter policies.
const (
	UnusedError  UnusedPolicy = "error"
	UnusedWarn   UnusedPolicy = "warn"
	UnusedIgnore UnusedPolicy = "ignore"
)

// ParseUnusedPolicy parses a policy name; the empty string yields UnusedWarn.
func ParseUnusedPolicy(s string) (UnusedPolicy, error) {
	switch UnusedPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", UnusedWarn:
		return UnusedWarn, nil
	case UnusedError:
		return UnusedError, nil
	case UnusedIgnore:
		return UnusedIgnore, nil
	default:
		return "", fmt.Errorf("unknown unused parameter policy %q (want error, warn or ignore)", s)
	}
}

// Input is the part of a tool definition the compiler needs.
type Input struct {
	Tool      string
	Statement string
	Params    []string
	ReadOnly  bool
}

// Compiled is an immutable executable plan for one tool.
type Compiled struct {
	Style   Style
	Dialect string
	Text    string
	Mutates bool

	// Params lists the declared parameter names in declaration order.
	Params []string
	// Consumed lists the parameter names the plan binds, in binding order.
	Consumed []string
	// Unused lists declared parameters no placeholder references.
	Unused []string
}

// Bound is a plan with arguments attached. Exactly one of Args or Vars is
// populated, depending on the style.
type Bound struct {
	Text    string
	Args    []any
	Vars    map[string]any
	Mutates bool
}

// Compile reconciles the statement's placeholders with the declared
// parameters and returns the executable plan. All failures are CompileErrors.
func Compile(in Input, d Dialect, policy UnusedPolicy) (*Compiled, error) {
	if strings.TrimSpace(in.Statement) == "" {
		return nil, toolerr.New(toolerr.KindCompile, "tool %q: statement is empty", in.Tool)
	}

	declared := make(map[string]int, len(in.Params))
	for i, p := range in.Params {
		if _, dup := declared[p]; dup {
			return nil, toolerr.New(toolerr.KindCompile, "tool %q: parameter %q declared twice", in.Tool, p)
		}
		declared[p] = i
	}

	scanned, err := scan(in.Statement, d)
	if err != nil {
		return nil, toolerr.Wrap(toolerr.KindCompile, err, "tool %q: scanning statement", in.Tool)
	}

	c := &Compiled{
		Style:   d.Style,
		Dialect: d.Name,
		Text:    in.Statement,
		Params:  append([]string(nil), in.Params...),
	}

	used := make(map[string]bool, len(in.Params))
	switch d.Style {
	case Dollar:
		c.Consumed, err = reconcileDollar(scanned.placeholders, in.Params, used)
	case Question:
		c.Consumed, err = reconcileQuestion(scanned.placeholders, in.Params, used)
	case Named:
		c.Consumed, err = reconcileNamed(scanned.placeholders, declared, used)
	default:
		err = fmt.Errorf("unsupported placeholder style %s", d.Style)
	}
	if err != nil {
		return nil, toolerr.Wrap(toolerr.KindCompile, err, "tool %q", in.Tool)
	}

	for _, p := range in.Params {
		if !used[p] {
			c.Unused = append(c.Unused, p)
		}
	}
	if len(c.Unused) > 0 {
		if err := applyUnusedPolicy(in.Tool, c.Unused, d, policy); err != nil {
			return nil, err
		}
	}

	if d.Writes != nil {
		c.Mutates = d.Writes(scanned.code)
	}
	if in.ReadOnly && (c.Mutates || d.writesAnywhere(scanned.code)) {
		return nil, toolerr.New(toolerr.KindCompile, "tool %q is read-only but its statement writes", in.Tool)
	}

	return c, nil
}

func reconcileDollar(phs []placeholder, params []string, used map[string]bool) ([]string, error) {
	maxIndex := 0
	seen := make(map[int]bool, len(phs))
	for _, ph := range phs {
		if ph.index > len(params) {
			return nil, fmt.Errorf("placeholder $%d at offset %d has no declared parameter (%d declared)",
				ph.index, ph.offset, len(params))
		}
		seen[ph.index] = true
		if ph.index > maxIndex {
			maxIndex = ph.index
		}
	}
	var gaps []string
	for i := 1; i <= maxIndex; i++ {
		if !seen[i] {
			gaps = append(gaps, fmt.Sprintf("$%d", i))
		}
	}
	if len(gaps) > 0 {
		return nil, fmt.Errorf("placeholder indices must be contiguous, missing %s", strings.Join(gaps, ", "))
	}
	consumed := params[:maxIndex]
	for _, p := range consumed {
		used[p] = true
	}
	return append([]string(nil), consumed...), nil
}

func reconcileQuestion(phs []placeholder, params []string, used map[string]bool) ([]string, error) {
	switch {
	case len(phs) < len(params):
		return nil, fmt.Errorf("declared parameters without a placeholder: %s (statement has %d positional placeholders, %d parameters declared)",
			strings.Join(params[len(phs):], ", "), len(phs), len(params))
	case len(phs) > len(params):
		extra := phs[len(params)]
		return nil, fmt.Errorf("placeholder ? #%d at offset %d has no declared parameter (%d declared)",
			extra.index, extra.offset, len(params))
	}
	for _, p := range params {
		used[p] = true
	}
	return append([]string(nil), params...), nil
}

func reconcileNamed(phs []placeholder, declared map[string]int, used map[string]bool) ([]string, error) {
	var (
		consumed []string
		missing  []string
	)
	for _, ph := range phs {
		if _, ok := declared[ph.name]; !ok {
			missing = append(missing, "$"+ph.name)
			continue
		}
		if !used[ph.name] {
			used[ph.name] = true
			consumed = append(consumed, ph.name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("placeholders without a declared parameter: %s", strings.Join(dedupe(missing), ", "))
	}
	sort.Slice(consumed, func(i, j int) bool { return declared[consumed[i]] < declared[consumed[j]] })
	return consumed, nil
}

func applyUnusedPolicy(tool string, unused []string, d Dialect, policy UnusedPolicy) error {
	if d.StrictArity || policy == UnusedError {
		return toolerr.New(toolerr.KindCompile, "tool %q: declared parameters not used by the statement: %s",
			tool, strings.Join(unused, ", "))
	}
	if policy == UnusedWarn || policy == "" {
		slog.Warn("declared parameters not used by statement",
			"tool", tool, "dialect", d.Name, "parameters", unused)
	}
	return nil
}

// Bind attaches arguments to the plan. Arguments for declared but unbound
// parameters are dropped; missing arguments bind as nil.
func (c *Compiled) Bind(args map[string]any) Bound {
	b := Bound{Text: c.Text, Mutates: c.Mutates}
	if c.Style == Named {
		b.Vars = make(map[string]any, len(c.Consumed))
		for _, name := range c.Consumed {
			b.Vars[name] = args[name]
		}
		return b
	}
	b.Args = make([]any, len(c.Consumed))
	for i, name := range c.Consumed {
		b.Args[i] = args[name]
	}
	return b
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			out = append(out, s)
		}
	}
	return out
}

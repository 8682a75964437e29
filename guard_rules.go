package agentexec

import (
	"regexp"
	"strings"
	"sync"

	"github.com/zhangyunhao116/agentexec/internal/pathutil"
)

// Rule names reported in GuardDecision.Rule.
const (
	ruleDenyPattern   = "deny-pattern"
	ruleAllowlist     = "allowlist"
	rulePathTraversal = "path-traversal"
	ruleWorkspacePath = "workspace-path"
	ruleDefaultAllow  = "default-allow"
)

// guardInput is the per-evaluation view of a command shared by all rules.
type guardInput struct {
	// trimmed is the command with surrounding whitespace removed.
	trimmed string
	// lower is trimmed, lower-cased. Pattern rules match against it.
	lower string
	// workingDir is the effective working directory of the command.
	workingDir string
}

func newGuardInput(command, workingDir string) *guardInput {
	trimmed := strings.TrimSpace(command)
	return &guardInput{
		trimmed:    trimmed,
		lower:      strings.ToLower(trimmed),
		workingDir: workingDir,
	}
}

// rule defines a single guard rule. Match returns a decision and true if the
// rule has a verdict, or a zero value and false to defer to later rules.
type rule struct {
	// Name is a short, unique identifier for this rule (e.g. "deny-pattern").
	Name string

	// Match inspects the command. Only Block verdicts are expected; the
	// pipeline allows a command when no rule matches.
	Match func(in *guardInput) (GuardDecision, bool)
}

// ruleGuard implements Guard by evaluating an ordered list of rules.
type ruleGuard struct {
	rules []rule
}

// Evaluate iterates through rules in order and returns the first match.
// If no rule matches the command is allowed.
func (g *ruleGuard) Evaluate(command, workingDir string) GuardDecision {
	in := newGuardInput(command, workingDir)
	for _, r := range g.rules {
		if d, ok := r.Match(in); ok {
			return d
		}
	}
	return GuardDecision{Decision: Allow, Rule: ruleDefaultAllow}
}

// chainGuard chains multiple Guard implementations. The first Block wins;
// if every guard allows, the last Allow decision is returned.
type chainGuard struct {
	guards []Guard
}

// Evaluate delegates to each chained guard in order.
func (c *chainGuard) Evaluate(command, workingDir string) GuardDecision {
	last := GuardDecision{Decision: Allow, Rule: ruleDefaultAllow}
	for _, g := range c.guards {
		d := g.Evaluate(command, workingDir)
		if !d.Allowed() {
			return d
		}
		last = d
	}
	return last
}

// ChainGuard returns a Guard that evaluates multiple guards in order. The
// first Block wins. Nil guards are skipped.
func ChainGuard(guards ...Guard) Guard {
	gs := make([]Guard, 0, len(guards))
	for _, g := range guards {
		if g != nil {
			gs = append(gs, g)
		}
	}
	return &chainGuard{guards: gs}
}

// defaultGuard caches the singleton DefaultGuard instance.
var (
	defaultGuardOnce sync.Once
	defaultGuardInst Guard
)

// DefaultGuard returns a Guard with the built-in deny patterns, no allow-list
// and no workspace restriction. It is stateless and cached after first use.
func DefaultGuard() Guard {
	defaultGuardOnce.Do(func() {
		deny, _ := compilePatterns("DenyPatterns", defaultDenyPatterns, nil)
		defaultGuardInst = newRuleGuard(deny, nil, false)
	})
	return defaultGuardInst
}

// NewGuard builds the rule pipeline described by cfg: deny patterns, then the
// allow-list, then workspace confinement when enabled. cfg.Guard, if set, is
// not included. An empty DenyPatterns falls back to the built-in set.
func NewGuard(cfg *Config) (Guard, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	denySrc := cfg.DenyPatterns
	if len(denySrc) == 0 {
		denySrc = defaultDenyPatterns
	}
	deny, _ := compilePatterns("DenyPatterns", denySrc, nil)
	allow, _ := compilePatterns("AllowPatterns", cfg.AllowPatterns, nil)
	return newRuleGuard(deny, allow, cfg.RestrictToWorkspace), nil
}

// newRuleGuard assembles the ordered rule list from compiled patterns.
func newRuleGuard(deny, allow []*regexp.Regexp, restrict bool) *ruleGuard {
	rules := []rule{denyPatternRule(deny)}
	if len(allow) > 0 {
		rules = append(rules, allowlistRule(allow))
	}
	if restrict {
		rules = append(rules, pathTraversalRule(), workspacePathRule())
	}
	return &ruleGuard{rules: rules}
}

// ---------------------------------------------------------------------------
// Rules
// ---------------------------------------------------------------------------

// denyPatternRule blocks when any deny pattern is found in the lower-cased
// command. Patterns are tried in order and the first hit is reported.
func denyPatternRule(patterns []*regexp.Regexp) rule {
	return rule{
		Name: ruleDenyPattern,
		Match: func(in *guardInput) (GuardDecision, bool) {
			for _, re := range patterns {
				if re.MatchString(in.lower) {
					d := blocked(DangerousPattern, ruleDenyPattern)
					d.Pattern = re.String()
					return d, true
				}
			}
			return GuardDecision{}, false
		},
	}
}

// allowlistRule blocks when no allow pattern is found in the lower-cased command.
func allowlistRule(patterns []*regexp.Regexp) rule {
	return rule{
		Name: ruleAllowlist,
		Match: func(in *guardInput) (GuardDecision, bool) {
			for _, re := range patterns {
				if re.MatchString(in.lower) {
					return GuardDecision{}, false
				}
			}
			return blocked(NotAllowlisted, ruleAllowlist), true
		},
	}
}

// pathTraversalRule blocks "../" and "..\" anywhere in the original-case text.
func pathTraversalRule() rule {
	return rule{
		Name: rulePathTraversal,
		Match: func(in *guardInput) (GuardDecision, bool) {
			if containsTraversal(in.trimmed) {
				return blocked(PathTraversal, rulePathTraversal), true
			}
			return GuardDecision{}, false
		},
	}
}

// workspacePathRule blocks absolute path literals that resolve outside the
// working directory. Paths that cannot be resolved are ignored.
func workspacePathRule() rule {
	return rule{
		Name: ruleWorkspacePath,
		Match: func(in *guardInput) (GuardDecision, bool) {
			paths := extractAbsolutePaths(in.trimmed)
			if len(paths) == 0 {
				return GuardDecision{}, false
			}
			base, err := pathutil.Resolve(in.workingDir)
			if err != nil {
				// An unresolvable workspace cannot contain anything.
				d := blocked(PathOutsideWorkspace, ruleWorkspacePath)
				d.Path = paths[0]
				return d, true
			}
			for _, raw := range paths {
				p, err := pathutil.Resolve(strings.TrimSpace(raw))
				if err != nil {
					continue
				}
				if !pathutil.IsWithin(base, p) {
					d := blocked(PathOutsideWorkspace, ruleWorkspacePath)
					d.Path = raw
					return d, true
				}
			}
			return GuardDecision{}, false
		},
	}
}

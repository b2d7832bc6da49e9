package patch

import (
	"regexp"
	"strings"
)

// Replacement strings use regexp.Expand syntax: ${1} refers to a capture group.
// Use Escape for literal values such as version numbers.

// Escape quotes s for use as a literal replacement.
func Escape(s string) string {
	return strings.ReplaceAll(s, "$", "$$")
}

// Sub replaces the first match of re in the line.
func Sub(re *regexp.Regexp, repl string) LineFunc {
	return func(line string) string {
		return replace(re, line, repl, 1, nil)
	}
}

// GSub replaces every match of re in the line.
func GSub(re *regexp.Regexp, repl string) LineFunc {
	return func(line string) string {
		return replace(re, line, repl, -1, nil)
	}
}

// Chain applies fns in order, each seeing the previous result.
func Chain(fns ...LineFunc) LineFunc {
	return func(line string) string {
		for _, fn := range fns {
			line = fn(line)
		}
		return line
	}
}

// Collector records one capture group of every match it replaces.
// A Collector is bound to a single patch run and is not safe for concurrent use.
type Collector struct {
	values []string
}

// Sub replaces the first match of re per line and records capture group group.
func (c *Collector) Sub(re *regexp.Regexp, group int, repl string) LineFunc {
	return func(line string) string {
		return replace(re, line, repl, 1, c.recorder(group))
	}
}

// GSub replaces every match of re and records capture group group of each.
func (c *Collector) GSub(re *regexp.Regexp, group int, repl string) LineFunc {
	return func(line string) string {
		return replace(re, line, repl, -1, c.recorder(group))
	}
}

// Values returns the recorded captures in match order.
func (c *Collector) Values() []string {
	out := make([]string, len(c.values))
	copy(out, c.values)
	return out
}

// Consistent returns the recorded value when at least one was recorded and all are equal.
func (c *Collector) Consistent() (string, bool) {
	if len(c.values) == 0 {
		return "", false
	}
	for _, v := range c.values[1:] {
		if v != c.values[0] {
			return "", false
		}
	}
	return c.values[0], true
}

func (c *Collector) recorder(group int) func(string, []int) {
	return func(line string, loc []int) {
		if 2*group+1 >= len(loc) || loc[2*group] < 0 {
			c.values = append(c.values, "")
			return
		}
		c.values = append(c.values, line[loc[2*group]:loc[2*group+1]])
	}
}

// replace substitutes up to n matches (all when n < 0). record, when set,
// sees each replaced match's submatch indices.
func replace(re *regexp.Regexp, line, repl string, n int, record func(string, []int)) string {
	matches := re.FindAllStringSubmatchIndex(line, n)
	if matches == nil {
		return line
	}
	var b strings.Builder
	last := 0
	for _, loc := range matches {
		b.WriteString(line[last:loc[0]])
		b.Write(re.ExpandString(nil, repl, line, loc))
		last = loc[1]
		if record != nil {
			record(line, loc)
		}
	}
	b.WriteString(line[last:])
	return b.String()
}

package pom

import (
	"strings"

	"github.com/matzehuels/moxie/pkg/errors"
)

// maxSubstitutionPasses bounds nested ${...} expansion.
const maxSubstitutionPasses = 16

// accessor reads one field of a POM for ${project.*} and ${parent.*} tokens.
type accessor func(*POM) string

var projectAccessors = map[string]accessor{
	"groupid":     func(p *POM) string { return p.GroupID },
	"artifactid":  func(p *POM) string { return p.ArtifactID },
	"version":     func(p *POM) string { return p.Version },
	"classifier":  func(p *POM) string { return p.Classifier },
	"packaging":   func(p *POM) string { return p.Packaging },
	"name":        func(p *POM) string { return p.Name },
	"description": func(p *POM) string { return p.Description },
	"url":         func(p *POM) string { return p.URL },
}

var parentAccessors = map[string]accessor{
	"groupid":    func(p *POM) string { return p.Parent.GroupID },
	"artifactid": func(p *POM) string { return p.Parent.ArtifactID },
	"version":    func(p *POM) string { return p.Parent.Version },
}

// SetProperty defines a property. Keys are case-insensitive; the declared
// spelling is kept for writing.
func (p *POM) SetProperty(key, value string) {
	lk := strings.ToLower(strings.TrimSpace(key))
	if lk == "" {
		return
	}
	p.properties[lk] = value
	p.propertyNames[lk] = key
}

// Property returns the raw value of an explicitly defined property.
func (p *POM) Property(key string) (string, bool) {
	v, ok := p.properties[strings.ToLower(key)]
	return v, ok
}

// Properties returns the declared property names, sorted.
func (p *POM) Properties() []string {
	names := make([]string, 0, len(p.properties))
	for _, k := range sortedKeys(p.properties) {
		names = append(names, p.propertyNames[k])
	}
	return names
}

// ResolveProperty looks key up, in order, in the explicit properties, the
// project./pom./parent. accessors, env.* and the system properties. When the
// key is unknown it is returned unchanged with ok false.
func (p *POM) ResolveProperty(key string) (string, bool) {
	tk := strings.TrimSpace(key)
	lk := strings.ToLower(tk)
	if v, ok := p.properties[lk]; ok {
		return v, true
	}

	if strings.HasPrefix(lk, "project.parent.") {
		lk = strings.TrimPrefix(lk, "project.")
	}
	switch {
	case strings.HasPrefix(lk, "project."):
		if fn, ok := projectAccessors[strings.TrimPrefix(lk, "project.")]; ok {
			return fn(p), true
		}
	case strings.HasPrefix(lk, "pom."):
		if fn, ok := projectAccessors[strings.TrimPrefix(lk, "pom.")]; ok {
			return fn(p), true
		}
	case strings.HasPrefix(lk, "parent."):
		if fn, ok := parentAccessors[strings.TrimPrefix(lk, "parent.")]; ok && p.Parent != nil {
			return fn(p), true
		}
	case strings.HasPrefix(tk, "env."):
		// environment names are case-sensitive
		if v, ok := p.opts.LookupEnv(strings.TrimPrefix(tk, "env.")); ok {
			return v, true
		}
	}

	for k, v := range p.opts.SystemProperties {
		if strings.EqualFold(k, lk) {
			return v, true
		}
	}
	return key, false
}

// Substitute replaces ${...} tokens in s. Unresolved tokens stay in place
// and are logged; use [POM.Resolve] to fail on them instead.
func (p *POM) Substitute(s string) string {
	out, unresolved := p.substitute(s)
	for _, key := range unresolved {
		p.opts.Logger.Warn("unresolved property", "pom", p.Coordinates(), "key", key)
	}
	return out
}

// Resolve substitutes s like [POM.Substitute], but in strict mode an
// unresolved token yields a MALFORMED_DESCRIPTOR error.
func (p *POM) Resolve(s string) (string, error) {
	out, unresolved := p.substitute(s)
	if len(unresolved) == 0 {
		return out, nil
	}
	if p.opts.Strict {
		return "", errors.New(errors.ErrCodeMalformedDescriptor,
			"%s: unresolved property ${%s}", p.Coordinates(), unresolved[0])
	}
	for _, key := range unresolved {
		p.opts.Logger.Warn("unresolved property", "pom", p.Coordinates(), "key", key)
	}
	return out, nil
}

// substitute expands tokens until none can be resolved further. Each pass
// rewrites every resolvable token once; a pass that changes nothing or the
// pass limit ends the loop, which also breaks self-referencing cycles.
func (p *POM) substitute(s string) (string, []string) {
	if !strings.Contains(s, "${") {
		return s, nil
	}
	var unresolved []string
	for pass := 0; pass < maxSubstitutionPasses; pass++ {
		var b strings.Builder
		changed := false
		unresolved = unresolved[:0]
		rest := s
		for {
			i := strings.Index(rest, "${")
			if i < 0 {
				b.WriteString(rest)
				break
			}
			j := strings.IndexByte(rest[i:], '}')
			if j < 0 {
				b.WriteString(rest)
				break
			}
			key := rest[i+2 : i+j]
			b.WriteString(rest[:i])
			if v, ok := p.ResolveProperty(key); ok && v != "${"+key+"}" {
				b.WriteString(v)
				changed = true
			} else {
				b.WriteString(rest[i : i+j+1])
				unresolved = append(unresolved, key)
			}
			rest = rest[i+j+1:]
		}
		s = b.String()
		if !changed {
			break
		}
	}
	if strings.Contains(s, "${") && len(unresolved) == 0 {
		// pass limit reached on a cycle
		unresolved = append(unresolved, tokensIn(s)...)
	}
	return s, unresolved
}

func tokensIn(s string) []string {
	var keys []string
	for {
		i := strings.Index(s, "${")
		if i < 0 {
			return keys
		}
		j := strings.IndexByte(s[i:], '}')
		if j < 0 {
			return keys
		}
		keys = append(keys, s[i+2:i+j])
		s = s[i+j+1:]
	}
}

package version

import (
	"fmt"
	"strings"
)

// Op is a reference's relational operator. All variants other than the
// relational four denote equality (spec §4.1).
type Op string

const (
	OpAny            Op = ""   // no operator: any version
	OpEqual          Op = "==" // canonical equality spelling
	OpGreaterOrEqual Op = ">="
	OpLessOrEqual    Op = "<="
	OpGreater        Op = ">"
	OpLess           Op = "<"
)

// equalitySpellings are the surface tokens that all mean equality.
var equalitySpellings = map[string]bool{
	"==": true,
	"=":  true,
	"@":  true,
	"-":  true,
}

// Reference is a parsed item reference: `[cookbook ":"] name [ op version ]`.
type Reference struct {
	Cookbook string // empty if unspecified
	Name     string
	Op       Op     // OpAny if no operator was present
	Version  string // empty if OpAny
	rawOp    string // the exact operator spelling seen, for round-tripping (P2)
}

// ParseReference parses an item reference string per spec §4.1.
func ParseReference(s string) (Reference, error) {
	var ref Reference

	rest := s

	// Optional "cookbook:" prefix. The cookbook name itself never contains
	// a relational operator character, so the first ':' not part of
	// whitespace-padding splits cleanly.
	if idx := strings.Index(rest, ":"); idx >= 0 {
		ref.Cookbook = strings.TrimSpace(rest[:idx])
		rest = rest[idx+1:]
	}

	rest = strings.TrimSpace(rest)
	if rest == "" {
		return Reference{}, fmt.Errorf("empty item reference")
	}

	name, op, opSpelling, ver, err := splitNameOp(rest)
	if err != nil {
		return Reference{}, err
	}
	ref.Name = name
	ref.Op = op
	ref.rawOp = opSpelling
	ref.Version = ver
	return ref, nil
}

// operatorTokens, longest first so ">=" is matched before ">".
var operatorTokens = []string{">=", "<=", "==", ">", "<", "=", "@", "-"}

func splitNameOp(s string) (name string, op Op, rawOp string, ver string, err error) {
	for _, tok := range operatorTokens {
		idx := strings.Index(s, tok)
		if tok == "-" {
			// A hyphen is the equality operator only when a version digit
			// follows it ("lib-1.0"); otherwise it belongs to the name
			// ("cycle-a").
			idx = -1
			for i := 0; i < len(s); i++ {
				after := strings.TrimSpace(s[i+1:])
				if s[i] == '-' && after != "" && after[0] >= '0' && after[0] <= '9' {
					idx = i
					break
				}
			}
		}
		if idx < 0 {
			continue
		}
		name = strings.TrimSpace(s[:idx])
		ver = strings.TrimSpace(s[idx+len(tok):])
		if name == "" {
			return "", "", "", "", fmt.Errorf("item reference missing name: %q", s)
		}
		if ver == "" {
			return "", "", "", "", fmt.Errorf("item reference %q has operator %q but no version", s, tok)
		}
		if equalitySpellings[tok] {
			return name, OpEqual, tok, ver, nil
		}
		return name, Op(tok), tok, ver, nil
	}
	// No operator: any version.
	return strings.TrimSpace(s), OpAny, "", "", nil
}

// String re-prints the reference in canonical form. Re-parsing it yields an
// equal (cookbook, name, op, version) tuple (P2) — the exact operator
// spelling used on input (e.g. "@" vs "==") is preserved via rawOp so a
// round trip does not silently rewrite a recipe file's operator choice.
func (r Reference) String() string {
	var sb strings.Builder
	if r.Cookbook != "" {
		sb.WriteString(r.Cookbook)
		sb.WriteString(":")
	}
	sb.WriteString(r.Name)
	if r.Op != OpAny {
		opSpelling := r.rawOp
		if opSpelling == "" {
			opSpelling = string(r.Op)
		}
		sb.WriteString(opSpelling)
		sb.WriteString(r.Version)
	}
	return sb.String()
}

package oski

import (
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Recipe is a parsed transformation program of the form
// "return TYPE(InputMat[, intArg]*)", per spec.md §4.7 and §9's recipe
// grammar (xforms.c in original_source). Type names the target
// representation; Args are its extra integer constructor arguments (block
// dimensions, for BCSR/MBCSR).
type Recipe struct {
	Type string
	Args []int
}

// String renders the recipe back to its canonical textual form, e.g.
// "return MBCSR(InputMat, 4, 2)".
func (r *Recipe) String() string {
	var b strings.Builder
	b.WriteString("return ")
	b.WriteString(r.Type)
	b.WriteString("(InputMat")
	for _, a := range r.Args {
		fmt.Fprintf(&b, ", %d", a)
	}
	b.WriteString(")")
	return b.String()
}

// ParseRecipe parses a recipe string. Supported types are BCSR(r, c) and
// MBCSR(r, c); both require exactly two integer arguments (the block
// dimensions) after the literal InputMat placeholder.
func ParseRecipe(s string) (*Recipe, error) {
	const op = "oski.ParseRecipe"
	s = strings.TrimSpace(s)
	rest, ok := cutPrefix(s, "return ")
	if !ok {
		return nil, newError(op, Syntax, "recipe must start with %q: %q", "return ", s)
	}
	open := strings.IndexByte(rest, '(')
	if open < 0 || !strings.HasSuffix(rest, ")") {
		return nil, newError(op, Syntax, "recipe missing call syntax: %q", s)
	}
	typeName := strings.TrimSpace(rest[:open])
	if typeName != "BCSR" && typeName != "MBCSR" {
		return nil, newError(op, Syntax, "unsupported recipe type %q", typeName)
	}

	inner := rest[open+1 : len(rest)-1]
	fields := strings.Split(inner, ",")
	if len(fields) == 0 {
		return nil, newError(op, Syntax, "recipe call has no arguments: %q", s)
	}
	if strings.TrimSpace(fields[0]) != "InputMat" {
		return nil, newError(op, Syntax, "recipe's first argument must be InputMat, got %q", fields[0])
	}

	args := make([]int, 0, len(fields)-1)
	for _, f := range fields[1:] {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, newError(op, Syntax, "non-integer recipe argument %q", f)
		}
		args = append(args, v)
	}
	if len(args) != 2 {
		return nil, newError(op, Syntax, "%s requires exactly 2 integer arguments, got %d", typeName, len(args))
	}
	return &Recipe{Type: typeName, Args: args}, nil
}

func cutPrefix(s, prefix string) (string, bool) {
	if !strings.HasPrefix(s, prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

// NewRecipe builds a Recipe for one of the two supported target
// representations, avoiding round-tripping through ParseRecipe when the
// caller already knows type and block size (e.g. the tuner, after a
// heuristic chooses (r, c)).
func NewRecipe(typeName string, r, c int) (*Recipe, error) {
	const op = "oski.NewRecipe"
	if typeName != "BCSR" && typeName != "MBCSR" {
		return nil, newError(op, Syntax, "unsupported recipe type %q", typeName)
	}
	return &Recipe{Type: typeName, Args: []int{r, c}}, nil
}

// Apply evaluates the recipe against a, producing the tuned representation
// as a mat.Matrix (BCSR or MBCSR both satisfy it).
func (r *Recipe) Apply(a *CSR) (mat.Matrix, error) {
	const op = "oski.Recipe.Apply"
	if len(r.Args) != 2 {
		return nil, newError(op, Syntax, "recipe %q missing block-size arguments", r.String())
	}
	blockR, blockC := r.Args[0], r.Args[1]
	switch r.Type {
	case "BCSR":
		return ConvertToBCSR(a, blockR, blockC)
	case "MBCSR":
		return ConvertToMBCSR(a, blockR, blockC)
	default:
		return nil, newError(op, Syntax, "unsupported recipe type %q", r.Type)
	}
}

package sim

import (
	"strconv"
	"strings"
)

// A Name is a hierarchical name that includes a series of tokens separated
// by dots, such as "Line.Printer" or "Line.Conveyor[2]".
type Name struct {
	Tokens []NameToken
}

// NameToken is a token of a name.
type NameToken struct {
	ElemName string
	Index    []int
}

// ParseName parses a name string. It returns a ConfigurationError if the
// brackets do not match or an index is not an integer.
func ParseName(sname string) (Name, error) {
	tokens := strings.Split(sname, ".")
	name := Name{Tokens: make([]NameToken, len(tokens))}

	for i, token := range tokens {
		t, err := parseNameToken(sname, token)
		if err != nil {
			return Name{}, err
		}

		name.Tokens[i] = t
	}

	return name, nil
}

func parseNameToken(sname, token string) (NameToken, error) {
	if !bracketsMatch(token) {
		return NameToken{}, NewConfigurationError(sname, "brackets must match")
	}

	ts := strings.Split(token, "[")
	indices := make([]int, len(ts)-1)

	for i := 1; i < len(ts); i++ {
		index, err := strconv.Atoi(strings.TrimSuffix(ts[i], "]"))
		if err != nil {
			return NameToken{}, NewConfigurationError(sname,
				"index %q must be an integer", ts[i])
		}

		indices[i-1] = index
	}

	return NameToken{ElemName: ts[0], Index: indices}, nil
}

func bracketsMatch(token string) bool {
	open := 0

	for _, c := range token {
		switch c {
		case '[':
			open++
		case ']':
			open--
			if open < 0 {
				return false
			}
		}
	}

	return open == 0
}

// ValidateName checks the naming convention of components.
//  1. Names are organized hierarchically. "A.B.C" is valid, "A.B.C." is not.
//  2. Individual names must not be empty. "A..B" is not valid.
//  3. Individual names are capitalized CamelCase. "A.b" is not valid.
//  4. Elements in a series use square-bracket notation, as in "Oven[1]".
func ValidateName(name string) error {
	n, err := ParseName(name)
	if err != nil {
		return err
	}

	for _, token := range n.Tokens {
		if err := validateToken(name, token); err != nil {
			return err
		}
	}

	return nil
}

// NameMustBeValid panics with a ConfigurationError if the name does not
// follow the naming convention.
func NameMustBeValid(name string) {
	if err := ValidateName(name); err != nil {
		panic(err)
	}
}

func validateToken(name string, token NameToken) error {
	if token.ElemName == "" {
		return NewConfigurationError(name, "name element must not be empty")
	}

	for _, c := range []string{"_", "\"", "'", "-", " "} {
		if strings.Contains(token.ElemName, c) {
			return NewConfigurationError(name,
				"name element must not contain %q", c)
		}
	}

	if token.ElemName[0] < 'A' || token.ElemName[0] > 'Z' {
		return NewConfigurationError(name,
			"name element must start with a capital letter")
	}

	return nil
}

// BuildName builds a name from a parent name and an element name.
func BuildName(parentName, elementName string) string {
	if parentName == "" {
		return elementName
	}

	return parentName + "." + elementName
}

// BuildNameWithIndex builds a name from a parent name, an element name and an
// index.
func BuildNameWithIndex(parentName, elementName string, index int) string {
	return BuildName(parentName, elementName+"["+strconv.Itoa(index)+"]")
}

// A Named object has a name.
type Named interface {
	Name() string
}

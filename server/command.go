package server

import (
	"loom/types"
	"strings"
)

// PrepSpec identifies one of MOO's fixed preposition slots, as stored in a
// verb's argument spec and matched against a parsed player command.
type PrepSpec int

const (
	PrepWith      PrepSpec = 0  // with/using
	PrepAt        PrepSpec = 1  // at/to
	PrepInFrontOf PrepSpec = 2  // in front of
	PrepIn        PrepSpec = 3  // in/inside/into
	PrepOn        PrepSpec = 4  // on top of/on/onto/upon
	PrepFrom      PrepSpec = 5  // out of/from inside/from
	PrepOver      PrepSpec = 6  // over
	PrepThrough   PrepSpec = 7  // through
	PrepUnder     PrepSpec = 8  // under/underneath/beneath
	PrepBehind    PrepSpec = 9  // behind
	PrepBeside    PrepSpec = 10 // beside
	PrepFor       PrepSpec = 11 // for/about
	PrepIs        PrepSpec = 12 // is
	PrepAs        PrepSpec = 13 // as
	PrepOff       PrepSpec = 14 // off/off of

	PrepNone PrepSpec = -1 // no preposition present in the command
	PrepAny  PrepSpec = -2 // verb spec wildcard: matches whatever prep was found
)

// prepositions lists every accepted spelling for each PrepSpec, indexed by
// the spec's own value. Multi-word entries are matched as a run of words,
// not a single token.
var prepositions = [][]string{
	{"with", "using"},
	{"at", "to"},
	{"in front of"},
	{"in", "inside", "into"},
	{"on top of", "on", "onto", "upon"},
	{"out of", "from inside", "from"},
	{"over"},
	{"through"},
	{"under", "underneath", "beneath"},
	{"behind"},
	{"beside"},
	{"for", "about"},
	{"is"},
	{"as"},
	{"off", "off of"},
}

// ParsedCommand is a player's input line broken into the verb/dobj/prep/iobj
// shape that verb matching and $verb args depend on.
type ParsedCommand struct {
	Verb    string
	Argstr  string
	Args    []string
	Dobjstr string
	Dobj    types.ObjID
	Prepstr string
	Prep    PrepSpec
	Iobjstr string
	Iobj    types.ObjID
}

// NewParsedCommand returns a ParsedCommand with its object fields defaulted
// to "nothing" and no preposition found, ready for ParseCommand to fill in.
func NewParsedCommand() *ParsedCommand {
	return &ParsedCommand{
		Dobj: types.ObjNothing,
		Prep: PrepNone,
		Iobj: types.ObjNothing,
	}
}

// specialPrefixVerbs maps a leading punctuation character straight to its
// built-in verb name: a quote says something, a colon emotes, a semicolon
// evaluates an expression. None of these go through preposition matching.
var specialPrefixVerbs = map[byte]string{
	'"': "say",
	':': "emote",
	';': "eval",
}

// asSpecialPrefix recognizes one of the punctuation-prefixed command forms
// and builds its ParsedCommand directly, bypassing verb/prep parsing.
func asSpecialPrefix(input string) (*ParsedCommand, bool) {
	verb, ok := specialPrefixVerbs[input[0]]
	if !ok {
		return nil, false
	}
	cmd := NewParsedCommand()
	cmd.Verb = verb
	cmd.Argstr = input[1:]
	if cmd.Argstr != "" {
		cmd.Args = strings.Fields(cmd.Argstr)
	}
	return cmd, true
}

// matchMultiWordPreposition tries each multi-word preposition spelling
// (e.g. "in front of") in table order and returns the first one that occurs
// anywhere in words, so a spec earlier in the table wins even when another
// spelling occurs earlier in the sentence.
func matchMultiWordPreposition(words []string) (PrepSpec, int, int, string) {
	for idx, aliases := range prepositions {
		for _, alias := range aliases {
			aliasWords := strings.Fields(alias)
			if len(aliasWords) < 2 {
				continue
			}
			if at, ok := findWordRun(words, aliasWords); ok {
				return PrepSpec(idx), at, at + len(aliasWords), alias
			}
		}
	}
	return PrepNone, -1, -1, ""
}

// findWordRun reports the index at which the case-insensitive word
// sequence `run` first occurs within `words`, if anywhere.
func findWordRun(words, run []string) (int, bool) {
	for i := 0; i <= len(words)-len(run); i++ {
		match := true
		for j, w := range run {
			if strings.ToLower(words[i+j]) != w {
				match = false
				break
			}
		}
		if match {
			return i, true
		}
	}
	return 0, false
}

// matchSingleWordPreposition scans words for the first one that is itself
// a recognized preposition spelling.
func matchSingleWordPreposition(words []string) (PrepSpec, int, int, string) {
	for i, word := range words {
		lower := strings.ToLower(word)
		for idx, aliases := range prepositions {
			for _, alias := range aliases {
				if lower == alias {
					return PrepSpec(idx), i, i + 1, lower
				}
			}
		}
	}
	return PrepNone, -1, -1, ""
}

// findPreposition locates a preposition in words: a multi-word spelling
// found anywhere takes precedence over every single-word one; otherwise the
// first word that is a single-word spelling is used.
func findPreposition(words []string) (PrepSpec, int, int, string) {
	if prep, start, end, s := matchMultiWordPreposition(words); prep != PrepNone {
		return prep, start, end, s
	}
	return matchSingleWordPreposition(words)
}

// ParseCommand splits a raw player input line into verb, direct object,
// preposition, and indirect object parts per MOO's command-line grammar.
func ParseCommand(input string) *ParsedCommand {
	input = strings.TrimSpace(input)
	if input == "" {
		return NewParsedCommand()
	}
	if cmd, ok := asSpecialPrefix(input); ok {
		return cmd
	}

	words := strings.Fields(input)
	cmd := NewParsedCommand()
	if len(words) == 0 {
		return cmd
	}

	cmd.Verb = words[0]
	if len(words) == 1 {
		return cmd
	}

	args := words[1:]
	cmd.Args = args
	cmd.Argstr = strings.Join(args, " ")

	prep, start, end, prepstr := findPreposition(args)
	if prep == PrepNone {
		cmd.Dobjstr = cmd.Argstr
		return cmd
	}

	cmd.Prep = prep
	cmd.Prepstr = prepstr
	if start > 0 {
		cmd.Dobjstr = strings.Join(args[:start], " ")
	}
	if end < len(args) {
		cmd.Iobjstr = strings.Join(args[end:], " ")
	}
	return cmd
}

package builtins

import (
	"loom/types"
	"strings"
	"unicode"
)

// strArg type-asserts args[i] as a string, for the common case of a
// built-in's positional arguments all being required strings.
func strArg(args []types.Value, i int) (types.StrValue, bool) {
	s, ok := args[i].(types.StrValue)
	return s, ok
}

// builtinLength returns the number of characters in a string, or the
// number of elements in a list.
// length(str) -> int
// length(list) -> int
func builtinLength(ctx *types.TaskContext, args []types.Value) types.Result {
	if len(args) != 1 {
		return types.Err(types.E_ARGS)
	}
	switch v := args[0].(type) {
	case types.StrValue:
		return types.Ok(types.IntValue{Val: int64(len([]rune(v.Value())))})
	case types.ListValue:
		return types.Ok(types.IntValue{Val: int64(v.Len())})
	default:
		return types.Err(types.E_TYPE)
	}
}

// builtinStrsub replaces every occurrence of old with new in subject.
// strsub(subject, old, new [, case_matters]) -> str
func builtinStrsub(ctx *types.TaskContext, args []types.Value) types.Result {
	if len(args) < 3 || len(args) > 4 {
		return types.Err(types.E_ARGS)
	}
	subject, ok := strArg(args, 0)
	if !ok {
		return types.Err(types.E_TYPE)
	}
	old, ok := strArg(args, 1)
	if !ok {
		return types.Err(types.E_TYPE)
	}
	replacement, ok := strArg(args, 2)
	if !ok {
		return types.Err(types.E_TYPE)
	}
	if old.Value() == "" {
		return types.Err(types.E_INVARG)
	}
	caseSensitive := len(args) == 4 && args[3].Truthy()

	if caseSensitive {
		return types.Ok(types.NewStr(strings.ReplaceAll(subject.Value(), old.Value(), replacement.Value())))
	}
	return types.Ok(types.NewStr(replaceFold(subject.Value(), old.Value(), replacement.Value())))
}

// runesEqualAt reports whether needle matches haystack starting at index i,
// comparing case-sensitively or by folded case per caseSensitive.
func runesEqualAt(haystack, needle []rune, i int, caseSensitive bool) bool {
	for j, nc := range needle {
		hc := haystack[i+j]
		if caseSensitive {
			if hc != nc {
				return false
			}
		} else if unicode.ToLower(hc) != unicode.ToLower(nc) {
			return false
		}
	}
	return true
}

// findSubstring scans haystack for needle starting at the 0-based index
// from, in the given direction (+1 forward, -1 backward), and returns the
// 1-based MOO index of the first match, or 0.
func findSubstring(haystack, needle []rune, from int, dir int, caseSensitive bool) int64 {
	if dir > 0 {
		for i := from; i <= len(haystack)-len(needle); i++ {
			if runesEqualAt(haystack, needle, i, caseSensitive) {
				return int64(i + 1)
			}
		}
		return 0
	}
	for i := from; i >= 0; i-- {
		if runesEqualAt(haystack, needle, i, caseSensitive) {
			return int64(i + 1)
		}
	}
	return 0
}

// builtinIndex finds the first occurrence of needle in haystack.
// index(haystack, needle [, case_matters [, start]]) -> int
func builtinIndex(ctx *types.TaskContext, args []types.Value) types.Result {
	if len(args) < 2 || len(args) > 4 {
		return types.Err(types.E_ARGS)
	}
	haystack, ok := strArg(args, 0)
	if !ok {
		return types.Err(types.E_TYPE)
	}
	needle, ok := strArg(args, 1)
	if !ok {
		return types.Err(types.E_TYPE)
	}
	caseSensitive := len(args) >= 3 && args[2].Truthy()

	start := 1
	if len(args) == 4 {
		startVal, ok := args[3].(types.IntValue)
		if !ok {
			return types.Err(types.E_TYPE)
		}
		start = int(startVal.Val)
	}
	if start < 1 {
		start = 1
	}

	hRunes := []rune(haystack.Value())
	if start-1 >= len(hRunes) {
		return types.Ok(types.IntValue{Val: 0})
	}
	return types.Ok(types.IntValue{Val: findSubstring(hRunes, []rune(needle.Value()), start-1, 1, caseSensitive)})
}

// builtinRindex finds the last occurrence of needle in haystack.
// rindex(haystack, needle [, case_matters [, start]]) -> int
func builtinRindex(ctx *types.TaskContext, args []types.Value) types.Result {
	if len(args) < 2 || len(args) > 4 {
		return types.Err(types.E_ARGS)
	}
	haystack, ok := strArg(args, 0)
	if !ok {
		return types.Err(types.E_TYPE)
	}
	needle, ok := strArg(args, 1)
	if !ok {
		return types.Err(types.E_TYPE)
	}
	caseSensitive := len(args) >= 3 && args[2].Truthy()

	hRunes := []rune(haystack.Value())
	nRunes := []rune(needle.Value())
	return types.Ok(types.IntValue{Val: findSubstring(hRunes, nRunes, len(hRunes)-len(nRunes), -1, caseSensitive)})
}

// builtinStrcmp compares two strings lexicographically, case-sensitively.
// strcmp(str1, str2) -> int (negative, zero, or positive)
func builtinStrcmp(ctx *types.TaskContext, args []types.Value) types.Result {
	if len(args) != 2 {
		return types.Err(types.E_ARGS)
	}
	a, ok := strArg(args, 0)
	if !ok {
		return types.Err(types.E_TYPE)
	}
	b, ok := strArg(args, 1)
	if !ok {
		return types.Err(types.E_TYPE)
	}
	return types.Ok(types.IntValue{Val: int64(strings.Compare(a.Value(), b.Value()))})
}

// builtinUpcase converts a string to uppercase.
// upcase(str) -> str
func builtinUpcase(ctx *types.TaskContext, args []types.Value) types.Result {
	if len(args) != 1 {
		return types.Err(types.E_ARGS)
	}
	s, ok := strArg(args, 0)
	if !ok {
		return types.Err(types.E_TYPE)
	}
	return types.Ok(types.NewStr(strings.ToUpper(s.Value())))
}

// builtinDowncase converts a string to lowercase.
// downcase(str) -> str
func builtinDowncase(ctx *types.TaskContext, args []types.Value) types.Result {
	if len(args) != 1 {
		return types.Err(types.E_ARGS)
	}
	s, ok := strArg(args, 0)
	if !ok {
		return types.Err(types.E_TYPE)
	}
	return types.Ok(types.NewStr(strings.ToLower(s.Value())))
}

// builtinCapitalize title-cases each word in a string.
// capitalize(str) -> str
func builtinCapitalize(ctx *types.TaskContext, args []types.Value) types.Result {
	if len(args) != 1 {
		return types.Err(types.E_ARGS)
	}
	s, ok := strArg(args, 0)
	if !ok {
		return types.Err(types.E_TYPE)
	}
	return types.Ok(types.NewStr(strings.Title(s.Value())))
}

// builtinExplode splits a string into a list of substrings on whitespace,
// or on an explicit delimiter.
// explode(str [, delimiter]) -> list
func builtinExplode(ctx *types.TaskContext, args []types.Value) types.Result {
	if len(args) < 1 || len(args) > 2 {
		return types.Err(types.E_ARGS)
	}
	s, ok := strArg(args, 0)
	if !ok {
		return types.Err(types.E_TYPE)
	}

	var parts []string
	if len(args) == 1 {
		parts = strings.Fields(s.Value())
	} else {
		delim, ok := strArg(args, 1)
		if !ok {
			return types.Err(types.E_TYPE)
		}
		parts = strings.Split(s.Value(), delim.Value())
	}

	elems := make([]types.Value, len(parts))
	for i, part := range parts {
		elems[i] = types.NewStr(part)
	}
	return types.Ok(types.NewList(elems))
}

// builtinImplode joins a list of strings with an optional delimiter.
// implode(list [, delimiter]) -> str
func builtinImplode(ctx *types.TaskContext, args []types.Value) types.Result {
	if len(args) < 1 || len(args) > 2 {
		return types.Err(types.E_ARGS)
	}
	list, ok := args[0].(types.ListValue)
	if !ok {
		return types.Err(types.E_TYPE)
	}
	delimiter := ""
	if len(args) == 2 {
		delim, ok := strArg(args, 1)
		if !ok {
			return types.Err(types.E_TYPE)
		}
		delimiter = delim.Value()
	}

	parts := make([]string, list.Len())
	for i := 1; i <= list.Len(); i++ {
		str, ok := list.Get(i).(types.StrValue)
		if !ok {
			return types.Err(types.E_TYPE)
		}
		parts[i-1] = str.Value()
	}
	return types.Ok(types.NewStr(strings.Join(parts, delimiter)))
}

// builtinTrim strips whitespace, or an explicit character set, from both
// ends of a string.
// trim(str [, chars]) -> str
func builtinTrim(ctx *types.TaskContext, args []types.Value) types.Result {
	return trimWith(args, strings.TrimSpace, strings.Trim)
}

// builtinLtrim strips from the left only.
// ltrim(str [, chars]) -> str
func builtinLtrim(ctx *types.TaskContext, args []types.Value) types.Result {
	return trimWith(args, func(s string) string { return strings.TrimLeftFunc(s, unicode.IsSpace) }, strings.TrimLeft)
}

// builtinRtrim strips from the right only.
// rtrim(str [, chars]) -> str
func builtinRtrim(ctx *types.TaskContext, args []types.Value) types.Result {
	return trimWith(args, func(s string) string { return strings.TrimRightFunc(s, unicode.IsSpace) }, strings.TrimRight)
}

// trimWith implements the shared trim/ltrim/rtrim argument handling: one
// arg trims whitespace via whitespaceTrim, two args trim the given
// character set via charTrim.
func trimWith(args []types.Value, whitespaceTrim func(string) string, charTrim func(s, cutset string) string) types.Result {
	if len(args) < 1 || len(args) > 2 {
		return types.Err(types.E_ARGS)
	}
	s, ok := strArg(args, 0)
	if !ok {
		return types.Err(types.E_TYPE)
	}
	if len(args) == 1 {
		return types.Ok(types.NewStr(whitespaceTrim(s.Value())))
	}
	chars, ok := strArg(args, 1)
	if !ok {
		return types.Err(types.E_TYPE)
	}
	return types.Ok(types.NewStr(charTrim(s.Value(), chars.Value())))
}

// builtinStrtr translates each character of str found in from to the
// character at the same position in to; characters past the end of to are
// deleted instead of replaced, and a character repeated in from resolves
// to its last occurrence.
// strtr(str, from, to [, case_matters]) -> str
func builtinStrtr(ctx *types.TaskContext, args []types.Value) types.Result {
	if len(args) < 3 || len(args) > 4 {
		return types.Err(types.E_ARGS)
	}
	str, ok := strArg(args, 0)
	if !ok {
		return types.Err(types.E_TYPE)
	}
	from, ok := strArg(args, 1)
	if !ok {
		return types.Err(types.E_TYPE)
	}
	to, ok := strArg(args, 2)
	if !ok {
		return types.Err(types.E_TYPE)
	}
	caseSensitive := len(args) == 4 && args[3].Truthy()

	fromRunes := []rune(from.Value())
	if len(fromRunes) == 0 {
		return types.Ok(str)
	}
	toRunes := []rune(to.Value())

	var out []rune
	for _, ch := range str.Value() {
		out = append(out, translateRune(ch, fromRunes, toRunes, caseSensitive)...)
	}
	return types.Ok(types.NewStr(string(out)))
}

// translateRune applies one step of strtr's translation table to ch,
// returning zero runes if ch maps past the end of "to" (deletion), one
// unchanged rune if ch isn't in "from" at all, or the replacement
// otherwise, case-matched to ch when caseSensitive is false.
func translateRune(ch rune, from, to []rune, caseSensitive bool) []rune {
	matchIdx := -1
	for i, fc := range from {
		equal := ch == fc
		if !caseSensitive {
			equal = unicode.ToLower(ch) == unicode.ToLower(fc)
		}
		if equal {
			matchIdx = i // last match in `from` wins on duplicates
		}
	}
	if matchIdx < 0 {
		return []rune{ch}
	}
	if matchIdx >= len(to) {
		return nil
	}
	replacement := to[matchIdx]
	if !caseSensitive {
		switch {
		case unicode.IsUpper(ch):
			replacement = unicode.ToUpper(replacement)
		case unicode.IsLower(ch):
			replacement = unicode.ToLower(replacement)
		}
	}
	return []rune{replacement}
}

// replaceFold performs a case-insensitive strings.ReplaceAll, operating on
// runes so multi-byte characters aren't split mid-replacement.
func replaceFold(s, old, new string) string {
	sRunes := []rune(s)
	oldRunes := []rune(old)
	if len(oldRunes) == 0 {
		return s
	}

	var out []rune
	i := 0
	for i < len(sRunes) {
		if i+len(oldRunes) <= len(sRunes) && runesEqualAt(sRunes, oldRunes, i, false) {
			out = append(out, []rune(new)...)
			i += len(oldRunes)
			continue
		}
		out = append(out, sRunes[i])
		i++
	}
	return string(out)
}

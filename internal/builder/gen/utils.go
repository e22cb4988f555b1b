package gen

import "strings"

// write appends every string in s to sb
func write(sb *strings.Builder, s ...string) {
	for _, str := range s {
		sb.WriteString(str)
	}
}

// writeln is write followed by a newline
func writeln(sb *strings.Builder, s ...string) {
	write(sb, s...)
	sb.WriteByte('\n')
}

var ninjaPathEscaper = strings.NewReplacer("$", "$$", ":", "$:", " ", "$ ")

// quote escapes a path in a build statement
func quote(s string) string { return ninjaPathEscaper.Replace(s) }

// shellArg escapes one command argument in a ninja variable. Arguments with
// whitespace are wrapped in double quotes so the command line keeps them whole.
func shellArg(s string) string {
	s = strings.ReplaceAll(s, "$", "$$")
	if strings.ContainsAny(s, " \t") {
		s = `"` + s + `"`
	}
	return s
}

func shellArgs(ss []string) string {
	quoted := make([]string, len(ss))
	for i, s := range ss {
		quoted[i] = shellArg(s)
	}
	return strings.Join(quoted, " ")
}

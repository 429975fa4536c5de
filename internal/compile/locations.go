// Package compile extracts source locations from compiler and test runner
// output so a host can jump to the offending line. The location lines are a
// fixed external contract; panic messages carry free-form text and fall back
// to a regular expression.
package compile

import (
	"bufio"
	"io"
	"regexp"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Location is one resolved source position. Column is 1-based and 0 when the
// line did not carry one.
type Location struct {
	Path    string
	Line    int
	Column  int
	Primary bool // `-->` lines are primary, `:::` lines are references
	Message string
}

// A Path token is any colon-free run containing at least one non-digit, so
// it is tried before Number and still lexes names like 2048.rs in one piece.
var locationLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Arrow", Pattern: `-->`},
	{Name: "Refer", Pattern: `:::`},
	{Name: "Path", Pattern: `[^\s:]*[^\d\s:][^\s:]*`},
	{Name: "Number", Pattern: `\d+`},
	{Name: "Colon", Pattern: `:`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// locationLine matches `--> path:line:col` and `::: path:line:col`; the
// column segment is optional.
type locationLine struct {
	Marker string `parser:"@(Arrow | Refer)"`
	Path   string `parser:"@Path"`
	Line   int    `parser:"Colon @Number"`
	Column *int   `parser:"(Colon @Number)?"`
}

var locationParser = participle.MustBuild[locationLine](
	participle.Lexer(locationLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

var panicPattern = regexp.MustCompile(`^thread '([^']*)' panicked at '(.*)', ([^:\s]+):(\d+)`)

// ParseLine extracts a location from one line of tool output, or reports
// that the line carries none.
func ParseLine(line string) (Location, bool) {
	if parsed, err := locationParser.ParseString("", line); err == nil {
		loc := Location{
			Path:    parsed.Path,
			Line:    parsed.Line,
			Primary: parsed.Marker == "-->",
		}
		if parsed.Column != nil {
			loc.Column = *parsed.Column
		}
		return loc, true
	}
	if m := panicPattern.FindStringSubmatch(line); m != nil {
		n, err := strconv.Atoi(m[4])
		if err != nil {
			return Location{}, false
		}
		return Location{
			Path:    m[3],
			Line:    n,
			Primary: true,
			Message: m[2],
		}, true
	}
	return Location{}, false
}

// Scan reads tool output and returns every location found, in order.
func Scan(r io.Reader) ([]Location, error) {
	var locs []Location
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for s.Scan() {
		if loc, ok := ParseLine(trimIndent(s.Text())); ok {
			locs = append(locs, loc)
		}
	}
	return locs, s.Err()
}

func trimIndent(line string) string {
	i := 0
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	return line[i:]
}

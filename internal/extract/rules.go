package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// lineRule rejects a cell line that cannot be a subject name.
type lineRule struct {
	name   string
	reject func(line string) bool
}

// minSubjectLen is the shortest line accepted as a subject name.
const minSubjectLen = 10

var (
	courseCodeRe  = regexp.MustCompile(`^DH[A-Z0-9]+`)
	numericRe     = regexp.MustCompile(`^[\d\s\-–]+$`)
	labelRe       = regexp.MustCompile(`(?i)^(Tiết|Phòng|GV|Giảng viên)\s*:`)
	sectionCodeRe = regexp.MustCompile(`^[A-Z]\d+\.`)
)

// academicKeywords keep short capitalised lines that are real subject names,
// e.g. "Cấu Trúc Dữ Liệu".
var academicKeywords = []string{
	"học", "trình", "liệu", "nghệ", "trúc", "nhập", "môn",
	"quản", "phát", "triển", "cntt", "dự án",
}

// subjectRules are applied in order; the first rule that rejects wins.
var subjectRules = []lineRule{
	{"course-code", courseCodeRe.MatchString},
	{"numeric", numericRe.MatchString},
	{"too-short", func(l string) bool { return utf8.RuneCountInString(l) < minSubjectLen }},
	{"label", labelRe.MatchString},
	{"section-code", sectionCodeRe.MatchString},
	{"short-caps", isShortCapsWithoutKeyword},
}

// classifyLine returns the name of the rule that rejects line, or "" when the
// line is a subject candidate.
func classifyLine(line string) string {
	for _, r := range subjectRules {
		if r.reject(line) {
			return r.name
		}
	}
	return ""
}

func isShortCapsWithoutKeyword(line string) bool {
	words := strings.Fields(line)
	if len(words) > 4 {
		return false
	}
	for _, w := range words {
		first, _ := utf8.DecodeRuneInString(w)
		if !unicode.IsUpper(first) {
			return false
		}
	}
	lower := strings.ToLower(line)
	for _, kw := range academicKeywords {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	return true
}

// subjectCandidates filters cell lines down to plausible subject names.
func subjectCandidates(lines []string) []string {
	var out []string
	for _, l := range lines {
		if classifyLine(l) == "" {
			out = append(out, l)
		}
	}
	return out
}

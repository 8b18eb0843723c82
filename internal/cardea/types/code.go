package types

// CodeLength is the fixed length of a scanned access code:
// date(6) + site(4) + registry(2) + serial(4), no delimiters.
const CodeLength = 16

const masterAffix = "123456"

// Code is a scanned access code split into its fixed-position segments.
// Immutable once parsed.
type Code struct {
	Raw      string
	Date     string // DDMMYY
	Site     string
	Registry string
	Serial   string
}

// ParseCode splits raw into segments. ok is false when raw is not exactly
// 16 characters; segment content is not validated here.
func ParseCode(raw string) (Code, bool) {
	if len(raw) != CodeLength {
		return Code{}, false
	}
	return Code{
		Raw:      raw,
		Date:     raw[0:6],
		Site:     raw[6:10],
		Registry: raw[10:12],
		Serial:   raw[12:16],
	}, true
}

// DateValid reports calendar plausibility of the date segment within the
// given two-digit year window. Only ranges are checked; Feb 30 passes.
func (c Code) DateValid(yearMin, yearMax int) bool {
	day, ok1 := atoi2(c.Date[0:2])
	month, ok2 := atoi2(c.Date[2:4])
	year, ok3 := atoi2(c.Date[4:6])
	if !ok1 || !ok2 || !ok3 {
		return false
	}
	return day >= 1 && day <= 31 &&
		month >= 1 && month <= 12 &&
		year >= yearMin && year <= yearMax
}

// MasterCode returns the per-site bypass code: the literal master affix
// wrapped around the site identifier.
func MasterCode(site string) string {
	return masterAffix + site + masterAffix
}

// IsMasterForm reports whether raw has the shape of a master code
// (master affix as both prefix and suffix), regardless of length or
// whether the embedded site exists.
func IsMasterForm(raw string) bool {
	return len(raw) >= 2*len(masterAffix) &&
		raw[:len(masterAffix)] == masterAffix &&
		raw[len(raw)-len(masterAffix):] == masterAffix
}

func atoi2(s string) (int, bool) {
	if len(s) != 2 || s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, false
	}
	return int(s[0]-'0')*10 + int(s[1]-'0'), true
}

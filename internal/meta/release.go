// Package meta turns raw announced filenames into normalized display names
// and parses release names into the fields the metadata provider can
// resolve: title, year, season, episode.
package meta

import (
	"regexp"
	"strconv"
	"strings"
)

// Release holds the fields parsed from a release name
type Release struct {
	Title   string
	Year    int
	Season  int
	Episode int
}

// IsSeries reports whether the release carries season or episode markers
func (r *Release) IsSeries() bool {
	return r.Season > 0 || r.Episode > 0
}

var (
	extensionRe = regexp.MustCompile(`(?i)\.(mkv|mp4|webm|avi|mp3|flac|m4a)\b.*$`)
	scrubRe     = regexp.MustCompile(`[',]`)
)

// NormalizeDisplayName produces the catalog display name from a raw
// filename or caption: "&" becomes "and", quotes and commas are scrubbed,
// the extension and anything after it is dropped.
func NormalizeDisplayName(raw string) string {
	name := strings.ReplaceAll(raw, "&", "and")
	name = scrubRe.ReplaceAllString(name, "")
	name = extensionRe.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

// Uploader/tag patterns found in announced filenames. Ordered: only the
// first matching rule is applied, so a name tagged several ways is cleaned
// by its most specific rule.
var uploaderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^@[\w\.-]+?_`),
	regexp.MustCompile(`_@[A-Za-z]+_|@[A-Za-z]+_|[\[\]\s@]*@[^.\s\[\]]+[\]\[\s@]*`),
	regexp.MustCompile(`^[\w\.-]+?_Uploads_`),
	regexp.MustCompile(`(?i)^(?:by|from)[\s_-]+[\w\.-]+?_`),
	regexp.MustCompile(`^\[[\w\.-]+?\][\s_-]*`),
	regexp.MustCompile(`^\([\w\.-]+?\)[\s_-]*`),
}

var edgeSeparatorsRe = regexp.MustCompile(`^[_\s-]+|[_\s-]+$`)

// StripUploaderTags removes the uploader attribution from a display name,
// applying only the first pattern rule that matches.
func StripUploaderTags(name string) string {
	result := strings.ReplaceAll(name, "\n", " ")
	for _, re := range uploaderPatterns {
		if re.MatchString(result) {
			result = re.ReplaceAllString(result, " ")
			break
		}
	}
	return edgeSeparatorsRe.ReplaceAllString(result, "")
}

// Release-name grammar. Patterns are ordered most to least specific;
// parsing stops at the first marker found so the title is everything
// before it.
var (
	seasonEpisodeRe = regexp.MustCompile(`(?i)\bS(\d{1,2})[\s._-]*E(\d{1,3})\b`)
	seasonOnlyRe    = regexp.MustCompile(`(?i)\b(?:S(\d{1,2})|Season[\s._-]*(\d{1,2}))\b`)
	episodeOnlyRe   = regexp.MustCompile(`(?i)\b(?:E(\d{1,3})|Episode[\s._-]*(\d{1,3})|Ep[\s._-]*(\d{1,3}))\b`)
	yearRe          = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
	qualityRe       = regexp.MustCompile(`(?i)\b(2160p|1080p|720p|480p|4k|bluray|blu[\s._-]ray|brrip|webrip|web[\s._-]dl|hdrip|dvdrip|hdtv|x264|x265|h264|h265|hevc|aac|dts|10bit|remux|proper|extended|uncut)\b`)
	titleSepRe      = regexp.MustCompile(`[._\-:]+`)
	spaceRunRe      = regexp.MustCompile(`\s+`)
)

// ParseRelease parses a cleaned release name into title, year, season and
// episode. The title is the text before the first structural marker
// (season/episode tag, year, or quality tag), with separators collapsed
// to single spaces.
func ParseRelease(name string) *Release {
	r := &Release{}
	titleEnd := len(name)

	if m := seasonEpisodeRe.FindStringSubmatchIndex(name); m != nil {
		r.Season = atoiGroup(name, m, 1)
		r.Episode = atoiGroup(name, m, 2)
		if m[0] < titleEnd {
			titleEnd = m[0]
		}
	} else {
		if m := seasonOnlyRe.FindStringSubmatchIndex(name); m != nil {
			s := atoiGroup(name, m, 1)
			if s == 0 {
				s = atoiGroup(name, m, 2)
			}
			r.Season = s
			if m[0] < titleEnd {
				titleEnd = m[0]
			}
		}
		if m := episodeOnlyRe.FindStringSubmatchIndex(name); m != nil {
			e := atoiGroup(name, m, 1)
			if e == 0 {
				e = atoiGroup(name, m, 2)
			}
			if e == 0 {
				e = atoiGroup(name, m, 3)
			}
			r.Episode = e
			if m[0] < titleEnd {
				titleEnd = m[0]
			}
		}
	}

	// The year must come after some title text, otherwise a title that is
	// itself a year ("2012") would be swallowed
	if m := yearRe.FindStringSubmatchIndex(name); m != nil && m[0] > 0 {
		r.Year, _ = strconv.Atoi(name[m[2]:m[3]])
		if m[0] < titleEnd {
			titleEnd = m[0]
		}
	}

	if m := qualityRe.FindStringIndex(name); m != nil && m[0] > 0 && m[0] < titleEnd {
		titleEnd = m[0]
	}

	title := name[:titleEnd]
	title = titleSepRe.ReplaceAllString(title, " ")
	title = strings.Trim(title, " ()[]")
	r.Title = spaceRunRe.ReplaceAllString(title, " ")
	return r
}

func atoiGroup(s string, m []int, group int) int {
	lo, hi := m[2*group], m[2*group+1]
	if lo < 0 {
		return 0
	}
	n, _ := strconv.Atoi(s[lo:hi])
	return n
}

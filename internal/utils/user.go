package utils

import (
	"strings"
	"unicode"
)

// ProfileLevel 根据积分数量返回用户等级
func ProfileLevel(points int) string {
	switch {
	case points >= 1000:
		return "Elder"
	case points >= 201:
		return "Organizer"
	case points >= 51:
		return "Contributor"
	case points >= 11:
		return "Neighbour"
	default:
		return "Newcomer"
	}
}

// Initials is the avatar fallback: up to two leading letters of the full name,
// or of the username when the name is blank.
func Initials(fullName, username string) string {
	src := strings.TrimSpace(fullName)
	if src == "" {
		src = username
	}
	var out []rune
	for _, word := range strings.Fields(src) {
		r := []rune(word)[0]
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			out = append(out, unicode.ToUpper(r))
		}
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 0 {
		return "?"
	}
	return string(out)
}

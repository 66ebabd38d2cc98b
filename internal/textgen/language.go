package textgen

import (
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"
)

// IsEnglish reports whether text is confidently English. Text under ten
// characters is never considered English.
func IsEnglish(text string) bool {
	if utf8.RuneCountInString(text) < 10 {
		return false
	}
	info := whatlanggo.Detect(text)
	return info.Lang == whatlanggo.Eng
}

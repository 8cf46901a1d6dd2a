package album

import (
	"fmt"

	"golang.org/x/text/language"
)

// languageCodes maps the album store's numeric language field to BCP 47 tags.
// Several store codes alias English.
var languageCodes = map[int]language.Tag{
	1:  language.English,
	2:  language.Hebrew,
	5:  language.Spanish,
	6:  language.Russian,
	7:  language.Portuguese,
	8:  language.Dutch,
	9:  language.French,
	10: language.English,
	11: language.German,
	12: language.English,
	13: language.English,
	14: language.English,
	16: language.Danish,
	17: language.Swedish,
	18: language.Hungarian,
	19: language.Italian,
}

// LanguageTag converts an album-store language code to its ISO tag. Unknown
// codes yield an empty tag and a warning through warn.
func LanguageTag(code int, warn func(msg string)) string {
	tag, ok := languageCodes[code]
	if !ok {
		if warn != nil {
			warn(fmt.Sprintf("unknown album language code %d", code))
		}
		return ""
	}
	return tag.String()
}

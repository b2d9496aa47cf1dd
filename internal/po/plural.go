package po

import (
	"regexp"
	"strconv"

	"github.com/dgallion1/docloc/internal/locale"
)

const (
	pluralsOne     = "nplurals=1; plural=0;"
	pluralsDefault = "nplurals=2; plural=(n != 1);"
	pluralsNotOne  = "nplurals=2; plural=(n > 1);"
	pluralsSlavic  = "nplurals=3; plural=(n%10==1 && n%100!=11 ? 0 : n%10>=2 && n%10<=4 && (n%100<10 || n%100>=20) ? 1 : 2);"
)

// pluralRules maps a language, or a full locale, to its Plural-Forms
// header. Languages not listed use pluralsDefault.
var pluralRules = map[string]string{
	"ja": pluralsOne, "ko": pluralsOne, "zh": pluralsOne, "vi": pluralsOne,
	"th": pluralsOne, "id": pluralsOne, "ms": pluralsOne, "lo": pluralsOne,
	"my": pluralsOne,

	"fr": pluralsNotOne, "pt-BR": pluralsNotOne, "hy": pluralsNotOne,
	"ti": pluralsNotOne, "ln": pluralsNotOne, "mg": pluralsNotOne,
	"wa": pluralsNotOne, "fil": pluralsNotOne, "oc": pluralsNotOne,
	"br": pluralsNotOne,

	"ru": pluralsSlavic, "uk": pluralsSlavic, "be": pluralsSlavic,
	"sr": pluralsSlavic, "hr": pluralsSlavic, "bs": pluralsSlavic,

	"pl": "nplurals=3; plural=(n==1 ? 0 : n%10>=2 && n%10<=4 && (n%100<10 || n%100>=20) ? 1 : 2);",
	"cs": "nplurals=3; plural=(n==1) ? 0 : (n>=2 && n<=4) ? 1 : 2;",
	"sk": "nplurals=3; plural=(n==1) ? 0 : (n>=2 && n<=4) ? 1 : 2;",
	"lt": "nplurals=3; plural=(n%10==1 && n%100!=11 ? 0 : n%10>=2 && (n%100<10 || n%100>=20) ? 1 : 2);",
	"lv": "nplurals=3; plural=(n%10==1 && n%100!=11 ? 0 : n != 0 ? 1 : 2);",
	"ro": "nplurals=3; plural=(n==1 ? 0 : (n==0 || (n%100 > 0 && n%100 < 20)) ? 1 : 2);",
	"sl": "nplurals=4; plural=(n%100==1 ? 0 : n%100==2 ? 1 : n%100==3 || n%100==4 ? 2 : 3);",
	"ga": "nplurals=5; plural=n==1 ? 0 : n==2 ? 1 : (n>2 && n<7) ? 2 :(n>6 && n<11) ? 3 : 4;",
	"ar": "nplurals=6; plural=(n==0 ? 0 : n==1 ? 1 : n==2 ? 2 : n%100>=3 && n%100<=10 ? 3 : n%100>=11 ? 4 : 5);",
}

// PluralForms returns the Plural-Forms header value for loc.
func PluralForms(loc locale.ID) string {
	if r, ok := pluralRules[loc.String()]; ok {
		return r
	}
	if r, ok := pluralRules[loc.Language()]; ok {
		return r
	}
	return pluralsDefault
}

var nplurals = regexp.MustCompile(`nplurals\s*=\s*(\d+)`)

// NPlurals returns the count declared in a Plural-Forms value, or 0.
func NPlurals(forms string) int {
	m := nplurals.FindStringSubmatch(forms)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

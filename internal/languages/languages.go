package languages

import (
	"golang.org/x/text/language"
)

// Default is the language used when a request does not name one.
const Default = "en-US"

// Language is a supported recognition language.
type Language struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	NativeName string `json:"nativeName"`
}

var supported = []Language{
	{Code: "en-US", Name: "English (US)", NativeName: "English (US)"},
	{Code: "en-GB", Name: "English (UK)", NativeName: "English (UK)"},
	{Code: "es-ES", Name: "Spanish (Spain)", NativeName: "Español (España)"},
	{Code: "es-MX", Name: "Spanish (Mexico)", NativeName: "Español (México)"},
	{Code: "fr-FR", Name: "French", NativeName: "Français"},
	{Code: "de-DE", Name: "German", NativeName: "Deutsch"},
	{Code: "it-IT", Name: "Italian", NativeName: "Italiano"},
	{Code: "pt-BR", Name: "Portuguese (Brazil)", NativeName: "Português (Brasil)"},
	{Code: "pt-PT", Name: "Portuguese (Portugal)", NativeName: "Português (Portugal)"},
	{Code: "ja-JP", Name: "Japanese", NativeName: "日本語"},
	{Code: "zh-CN", Name: "Chinese (Simplified)", NativeName: "中文 (简体)"},
	{Code: "zh-TW", Name: "Chinese (Traditional)", NativeName: "中文 (繁體)"},
	{Code: "ko-KR", Name: "Korean", NativeName: "한국어"},
	{Code: "ru-RU", Name: "Russian", NativeName: "Русский"},
	{Code: "ar-SA", Name: "Arabic", NativeName: "العربية"},
	{Code: "hi-IN", Name: "Hindi", NativeName: "हिन्दी"},
	{Code: "nl-NL", Name: "Dutch", NativeName: "Nederlands"},
	{Code: "pl-PL", Name: "Polish", NativeName: "Polski"},
	{Code: "tr-TR", Name: "Turkish", NativeName: "Türkçe"},
	{Code: "sv-SE", Name: "Swedish", NativeName: "Svenska"},
}

var byCode = func() map[string]Language {
	m := make(map[string]Language, len(supported))
	for _, l := range supported {
		m[l.Code] = l
	}
	return m
}()

// IsSupported reports whether code is one of the supported codes. Matching is exact.
func IsSupported(code string) bool {
	_, ok := byCode[code]
	return ok
}

// Lookup returns the language registered under code.
func Lookup(code string) (Language, bool) {
	l, ok := byCode[code]
	return l, ok
}

// Name returns the display name for code, or "Unknown".
func Name(code string) string {
	if l, ok := byCode[code]; ok {
		return l.Name
	}
	return "Unknown"
}

// All returns a copy of the supported languages in display order.
func All() []Language {
	out := make([]Language, len(supported))
	copy(out, supported)
	return out
}

// BaseLanguage returns the ISO 639 base of a BCP-47 code ("pt" for "pt-BR").
// Malformed codes return an empty string.
func BaseLanguage(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return ""
	}
	base, _ := tag.Base()
	return base.String()
}

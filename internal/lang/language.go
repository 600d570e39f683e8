// Package lang validates the language hint of a transcription request.
//
// A hint is either Auto (let the provider detect the spoken language) or an
// ISO 639-1 code, optionally with a regional suffix ("pt-BR"). Providers only
// take the base code, so regional variants are reduced with BaseCode.
package lang

import (
	"fmt"
	"strings"
)

// Auto is the canonical spelling of "detect the language".
const Auto = "auto"

// knownLanguages lists the base codes accepted by whisper-family providers.
// Not exhaustive.
var knownLanguages = map[string]string{
	"af": "Afrikaans",
	"ar": "Arabic",
	"bg": "Bulgarian",
	"bn": "Bengali",
	"ca": "Catalan",
	"cs": "Czech",
	"da": "Danish",
	"de": "German",
	"el": "Greek",
	"en": "English",
	"es": "Spanish",
	"et": "Estonian",
	"fa": "Persian",
	"fi": "Finnish",
	"fr": "French",
	"he": "Hebrew",
	"hi": "Hindi",
	"hr": "Croatian",
	"hu": "Hungarian",
	"id": "Indonesian",
	"it": "Italian",
	"ja": "Japanese",
	"kk": "Kazakh",
	"ko": "Korean",
	"lt": "Lithuanian",
	"lv": "Latvian",
	"ms": "Malay",
	"nl": "Dutch",
	"no": "Norwegian",
	"pl": "Polish",
	"pt": "Portuguese",
	"ro": "Romanian",
	"ru": "Russian",
	"sk": "Slovak",
	"sl": "Slovenian",
	"sr": "Serbian",
	"sv": "Swedish",
	"sw": "Swahili",
	"ta": "Tamil",
	"th": "Thai",
	"tr": "Turkish",
	"uk": "Ukrainian",
	"ur": "Urdu",
	"uz": "Uzbek",
	"vi": "Vietnamese",
	"zh": "Chinese",
}

// Normalize lowercases a code and uses a hyphen as the region separator.
// "pt_BR", "PT-BR" and "pt-br" all become "pt-br".
func Normalize(lang string) string {
	return strings.ToLower(strings.ReplaceAll(lang, "_", "-"))
}

// IsAuto reports whether lang asks for provider-side detection.
// The empty string counts as auto.
func IsAuto(lang string) bool {
	return lang == "" || Normalize(lang) == Auto
}

// BaseCode strips the regional suffix: "pt-BR" -> "pt". Auto yields "".
func BaseCode(lang string) string {
	if IsAuto(lang) {
		return ""
	}
	normalized := Normalize(lang)
	if idx := strings.Index(normalized, "-"); idx != -1 {
		return normalized[:idx]
	}
	return normalized
}

// Validate returns ErrInvalid if lang is neither auto nor a known base code.
func Validate(lang string) error {
	if IsAuto(lang) {
		return nil
	}
	if _, ok := knownLanguages[BaseCode(lang)]; !ok {
		return fmt.Errorf("language %q (use %q or ISO 639-1 codes like 'en', 'pt-BR'): %w",
			lang, Auto, ErrInvalid)
	}
	return nil
}

// DisplayName returns the English name of the base language, or the code
// itself when unknown. Auto is shown as "auto-detect".
func DisplayName(lang string) string {
	if IsAuto(lang) {
		return "auto-detect"
	}
	if name, ok := knownLanguages[BaseCode(lang)]; ok {
		return name
	}
	return lang
}

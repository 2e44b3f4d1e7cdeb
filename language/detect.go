// Package language decides when a question needs translation before it
// reaches a generation backend, and translates it there and back.
package language

import (
	"unicode"

	"github.com/abadojack/whatlanggo"
)

// Detector identifies the language of a text. Detect returns an ISO
// 639-3 code and whether the detection is reliable enough to act on.
type Detector interface {
	Detect(text string) (lang string, reliable bool)
}

// WhatLangDetector detects languages with whatlanggo's trigram model.
type WhatLangDetector struct{}

// Detect returns the detected ISO 639-3 code and its reliability.
func (WhatLangDetector) Detect(text string) (string, bool) {
	info := whatlanggo.Detect(text)
	return whatlanggo.LangToString(info.Lang), info.IsReliable()
}

// ContainsScript reports whether text contains at least one rune from
// the given Unicode script range.
func ContainsScript(text string, script *unicode.RangeTable) bool {
	if script == nil {
		return false
	}
	for _, r := range text {
		if unicode.Is(script, r) {
			return true
		}
	}
	return false
}

var _ Detector = WhatLangDetector{}

package certificate

// Arabic letters must be rendered in their contextual presentation forms
// (Unicode Arabic Presentation Forms-B) and in visual order: PDF libraries
// draw glyphs left-to-right with no shaping engine, so the text is reshaped
// and then reversed before drawing.

// base letter -> [isolated, final, initial, medial]; 0 when the letter has no
// such form (right-joining letters only have isolated and final forms).
var arabicForms = map[rune][4]rune{
	'ء': {'ﺀ', 0, 0, 0},                // hamza
	'آ': {'ﺁ', 'ﺂ', 0, 0},         // alef madda
	'أ': {'ﺃ', 'ﺄ', 0, 0},         // alef hamza above
	'ؤ': {'ﺅ', 'ﺆ', 0, 0},         // waw hamza
	'إ': {'ﺇ', 'ﺈ', 0, 0},         // alef hamza below
	'ئ': {'ﺉ', 'ﺊ', 'ﺋ', 'ﺌ'}, // yeh hamza
	'ا': {'ﺍ', 'ﺎ', 0, 0},         // alef
	'ب': {'ﺏ', 'ﺐ', 'ﺑ', 'ﺒ'}, // beh
	'ة': {'ﺓ', 'ﺔ', 0, 0},         // teh marbuta
	'ت': {'ﺕ', 'ﺖ', 'ﺗ', 'ﺘ'}, // teh
	'ث': {'ﺙ', 'ﺚ', 'ﺛ', 'ﺜ'}, // theh
	'ج': {'ﺝ', 'ﺞ', 'ﺟ', 'ﺠ'}, // jeem
	'ح': {'ﺡ', 'ﺢ', 'ﺣ', 'ﺤ'}, // hah
	'خ': {'ﺥ', 'ﺦ', 'ﺧ', 'ﺨ'}, // khah
	'د': {'ﺩ', 'ﺪ', 0, 0},         // dal
	'ذ': {'ﺫ', 'ﺬ', 0, 0},         // thal
	'ر': {'ﺭ', 'ﺮ', 0, 0},         // reh
	'ز': {'ﺯ', 'ﺰ', 0, 0},         // zain
	'س': {'ﺱ', 'ﺲ', 'ﺳ', 'ﺴ'}, // seen
	'ش': {'ﺵ', 'ﺶ', 'ﺷ', 'ﺸ'}, // sheen
	'ص': {'ﺹ', 'ﺺ', 'ﺻ', 'ﺼ'}, // sad
	'ض': {'ﺽ', 'ﺾ', 'ﺿ', 'ﻀ'}, // dad
	'ط': {'ﻁ', 'ﻂ', 'ﻃ', 'ﻄ'}, // tah
	'ظ': {'ﻅ', 'ﻆ', 'ﻇ', 'ﻈ'}, // zah
	'ع': {'ﻉ', 'ﻊ', 'ﻋ', 'ﻌ'}, // ain
	'غ': {'ﻍ', 'ﻎ', 'ﻏ', 'ﻐ'}, // ghain
	'ف': {'ﻑ', 'ﻒ', 'ﻓ', 'ﻔ'}, // feh
	'ق': {'ﻕ', 'ﻖ', 'ﻗ', 'ﻘ'}, // qaf
	'ك': {'ﻙ', 'ﻚ', 'ﻛ', 'ﻜ'}, // kaf
	'ل': {'ﻝ', 'ﻞ', 'ﻟ', 'ﻠ'}, // lam
	'م': {'ﻡ', 'ﻢ', 'ﻣ', 'ﻤ'}, // meem
	'ن': {'ﻥ', 'ﻦ', 'ﻧ', 'ﻨ'}, // noon
	'ه': {'ﻩ', 'ﻪ', 'ﻫ', 'ﻬ'}, // heh
	'و': {'ﻭ', 'ﻮ', 0, 0},         // waw
	'ى': {'ﻯ', 'ﻰ', 0, 0},         // alef maksura
	'ي': {'ﻱ', 'ﻲ', 'ﻳ', 'ﻴ'}, // yeh
}

// lam + alef variants collapse into a single ligature glyph.
var lamAlefLigatures = map[rune][2]rune{
	'آ': {'ﻵ', 'ﻶ'},
	'أ': {'ﻷ', 'ﻸ'},
	'إ': {'ﻹ', 'ﻺ'},
	'ا': {'ﻻ', 'ﻼ'},
}

const (
	formIsolated = 0
	formFinal    = 1
	formInitial  = 2
	formMedial   = 3
)

func isHarakat(r rune) bool { return r >= 'ً' && r <= 'ْ' }

func isArabicLetter(r rune) bool {
	_, ok := arabicForms[r]
	return ok
}

// joinsForward reports whether the letter connects to the letter after it.
func joinsForward(r rune) bool {
	forms, ok := arabicForms[r]
	return ok && forms[formInitial] != 0
}

// joinsBackward reports whether the letter connects to the letter before it.
func joinsBackward(r rune) bool {
	forms, ok := arabicForms[r]
	return ok && forms[formFinal] != 0
}

// reshape substitutes every Arabic letter with its contextual presentation
// form and collapses lam-alef pairs into ligatures. Harakat are dropped.
func reshape(s string) []rune {
	in := make([]rune, 0, len(s))
	for _, r := range s {
		if !isHarakat(r) {
			in = append(in, r)
		}
	}

	out := make([]rune, 0, len(in))
	for i := 0; i < len(in); i++ {
		r := in[i]
		forms, ok := arabicForms[r]
		if !ok {
			out = append(out, r)
			continue
		}

		prevJoins := i > 0 && joinsForward(in[i-1])

		// lam-alef ligature
		if r == 'ل' && i+1 < len(in) {
			if lig, ok := lamAlefLigatures[in[i+1]]; ok {
				if prevJoins {
					out = append(out, lig[1])
				} else {
					out = append(out, lig[0])
				}
				i++
				continue
			}
		}

		nextJoins := i+1 < len(in) && joinsBackward(in[i+1])

		form := formIsolated
		switch {
		case prevJoins && nextJoins:
			form = formMedial
		case prevJoins:
			form = formFinal
		case nextJoins:
			form = formInitial
		}
		// letters without initial/medial forms fall back
		if forms[form] == 0 {
			if form == formMedial {
				form = formFinal
			} else {
				form = formIsolated
			}
		}
		if forms[form] == 0 {
			form = formIsolated
		}
		out = append(out, forms[form])
	}
	return out
}

// ShapeText prepares Arabic text for a left-to-right glyph renderer:
// contextual reshaping followed by a reversal into visual order. Embedded
// left-to-right runs (Latin names, numbers, dates) keep their logical order
// inside the reversed line.
func ShapeText(s string) string {
	shaped := reshape(s)
	reverseRunes(shaped)
	for i := 0; i < len(shaped); {
		if !isLTR(shaped[i]) {
			i++
			continue
		}
		j := i + 1
		for j < len(shaped) && isLTR(shaped[j]) {
			j++
		}
		reverseRunes(shaped[i:j])
		i = j
	}
	return string(shaped)
}

func reverseRunes(rs []rune) {
	for i, j := 0, len(rs)-1; i < j; i, j = i+1, j-1 {
		rs[i], rs[j] = rs[j], rs[i]
	}
}

// isLTR reports whether the rune belongs to a left-to-right run: Latin
// letters and digits, plus the punctuation that glues them into dates and
// numbers.
func isLTR(r rune) bool {
	switch {
	case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	case r == '-' || r == '.' || r == ':' || r == '/':
		return true
	}
	return false
}

// ShapeMixedText shapes only when the text actually contains Arabic;
// non-Arabic text passes through untouched.
func ShapeMixedText(s string) string {
	for _, r := range s {
		if r >= '؀' && r <= 'ۿ' {
			return ShapeText(s)
		}
	}
	return s
}

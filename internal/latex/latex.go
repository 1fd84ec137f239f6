// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package latex renders common LaTeX math notation as plain Unicode text
// for renderers that have no equation support.
package latex

import (
	"regexp"
	"strings"
)

// symbols maps LaTeX commands to Unicode glyphs.
var symbols = [][2]string{
	{`\alpha`, "α"}, {`\beta`, "β"}, {`\gamma`, "γ"}, {`\delta`, "δ"},
	{`\epsilon`, "ε"}, {`\theta`, "θ"}, {`\lambda`, "λ"}, {`\mu`, "μ"},
	{`\pi`, "π"}, {`\sigma`, "σ"}, {`\phi`, "φ"}, {`\omega`, "ω"},
	{`\Delta`, "Δ"}, {`\Sigma`, "Σ"}, {`\Omega`, "Ω"},
	{`\infty`, "∞"}, {`\pm`, "±"}, {`\times`, "×"}, {`\div`, "÷"},
	{`\leq`, "≤"}, {`\geq`, "≥"}, {`\neq`, "≠"}, {`\approx`, "≈"},
	{`\equiv`, "≡"}, {`\sum`, "∑"}, {`\int`, "∫"}, {`\partial`, "∂"},
	{`\nabla`, "∇"}, {`\sqrt`, "√"},
}

var symbolReplacer = func() *strings.Replacer {
	// strings.Replacer picks the first matching old string at each
	// position, so list longer commands first.
	pairs := make([][2]string, len(symbols))
	copy(pairs, symbols)
	for i := 1; i < len(pairs); i++ {
		for j := i; j > 0 && len(pairs[j][0]) > len(pairs[j-1][0]); j-- {
			pairs[j], pairs[j-1] = pairs[j-1], pairs[j]
		}
	}
	args := make([]string, 0, 2*len(pairs))
	for _, p := range pairs {
		args = append(args, p[0], p[1])
	}
	return strings.NewReplacer(args...)
}()

var superscripts = map[string]string{
	"0": "⁰", "1": "¹", "2": "²", "3": "³", "4": "⁴",
	"5": "⁵", "6": "⁶", "7": "⁷", "8": "⁸", "9": "⁹",
	"n": "ⁿ", "i": "ⁱ",
}

var subscripts = map[string]string{
	"0": "₀", "1": "₁", "2": "₂", "3": "₃", "4": "₄",
	"5": "₅", "6": "₆", "7": "₇", "8": "₈", "9": "₉",
	"i": "ᵢ", "j": "ⱼ", "n": "ₙ",
}

var (
	fracPattern     = regexp.MustCompile(`\\frac\{([^}]+)\}\{([^}]+)\}`)
	supBracePattern = regexp.MustCompile(`\^\{([0-9ni])\}`)
	supPattern      = regexp.MustCompile(`\^([0-9ni])`)
	subBracePattern = regexp.MustCompile(`_\{([0-9ijn])\}`)
	subPattern      = regexp.MustCompile(`_([0-9ijn])`)
	commandPattern  = regexp.MustCompile(`\\([a-zA-Z]+)`)
)

// ToUnicode converts LaTeX math into a Unicode approximation:
// symbols become their Unicode glyphs, \frac{a}{b} becomes (a)/(b),
// single-character super- and subscripts use Unicode script digits,
// remaining braces are dropped and unknown commands lose their backslash.
func ToUnicode(code string) string {
	result := fracPattern.ReplaceAllString(code, "($1)/($2)")
	result = symbolReplacer.Replace(result)

	result = replaceScript(result, supBracePattern, superscripts, "^")
	result = replaceScript(result, supPattern, superscripts, "^")
	result = replaceScript(result, subBracePattern, subscripts, "_")
	result = replaceScript(result, subPattern, subscripts, "_")

	result = strings.NewReplacer("{", "", "}", "").Replace(result)
	return commandPattern.ReplaceAllString(result, "$1")
}

// IsLaTeX reports whether s looks like it contains LaTeX commands or scripts.
func IsLaTeX(s string) bool {
	return strings.ContainsAny(s, `\^_`)
}

func replaceScript(s string, re *regexp.Regexp, table map[string]string, marker string) string {
	return re.ReplaceAllStringFunc(s, func(m string) string {
		sub := re.FindStringSubmatch(m)
		if r, ok := table[sub[1]]; ok {
			return r
		}
		return marker + sub[1]
	})
}

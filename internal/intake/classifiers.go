package intake

import "strings"

// Classifier intercepts specific inbound phrases with a canned reply
// instead of normal item parsing.
type Classifier struct {
	Name  string
	Match func(lowered string) bool
	Reply string
}

var drugWords = map[string]struct{}{
	"weed":    {},
	"cocaine": {},
	"meth":    {},
	"heroin":  {},
	"lsd":     {},
	"shrooms": {},
	"edibles": {},
}

var deliveryBrands = []string{"doordash", "uber eats", "ubereats", "grubhub", "postmates", "deliveroo"}

var trollPhrases = []string{"deez nuts", "your mom", "ligma"}

// classifiers runs in declared order and the first match wins, so a message
// matching two categories resolves to whichever is checked first. The check
// happens before comma-splitting, so a joke phrase containing a comma is
// still intercepted rather than forwarded as garbage items.
var classifiers = []Classifier{
	{
		Name: "drugs",
		Match: func(lowered string) bool {
			for _, w := range splitWords(lowered) {
				if _, ok := drugWords[w]; ok {
					return true
				}
			}
			return false
		},
		Reply: "🚫 Nice try. The tracker is for groceries, not controlled substances.",
	},
	{
		Name:  "grass",
		Match: func(lowered string) bool { return strings.TrimSpace(lowered) == "grass" },
		Reply: "🌱 Go touch some instead.",
	},
	{
		Name:  "vibes",
		Match: func(lowered string) bool { return strings.Contains(lowered, "vibes") },
		Reply: "✨ Vibes are free and don't need to go on the list.",
	},
	{
		Name: "delivery",
		Match: func(lowered string) bool {
			for _, b := range deliveryBrands {
				if strings.Contains(lowered, b) {
					return true
				}
			}
			return false
		},
		Reply: "🛵 We don't do delivery apps here — put actual groceries on the list.",
	},
	{
		Name: "troll",
		Match: func(lowered string) bool {
			for _, p := range trollPhrases {
				if strings.Contains(lowered, p) {
					return true
				}
			}
			return false
		},
		Reply: "🙄 Very funny. Send real items, comma-separated.",
	},
}

// Classify returns the first matching classifier, or nil.
func Classify(content string) *Classifier {
	lowered := strings.ToLower(content)
	for i := range classifiers {
		if classifiers[i].Match(lowered) {
			return &classifiers[i]
		}
	}
	return nil
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}

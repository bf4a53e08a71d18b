package nlp

// stopwords is a fixed set of English function words. Membership is checked on the
// lowercase surface form and again on the stem.
var stopwords = map[string]struct{}{
	"a": {}, "about": {}, "above": {}, "after": {}, "again": {}, "against": {}, "all": {},
	"also": {}, "am": {}, "an": {}, "and": {}, "any": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "because": {}, "been": {}, "before": {}, "being": {}, "below": {},
	"between": {}, "both": {}, "but": {}, "by": {}, "can": {}, "could": {}, "did": {},
	"do": {}, "does": {}, "doing": {}, "don": {}, "down": {}, "during": {}, "each": {},
	"either": {}, "else": {}, "etc": {}, "ever": {}, "every": {}, "few": {}, "for": {},
	"from": {}, "further": {}, "get": {}, "got": {}, "had": {}, "has": {}, "have": {},
	"having": {}, "he": {}, "her": {}, "here": {}, "hers": {}, "herself": {}, "him": {},
	"himself": {}, "his": {}, "how": {}, "however": {}, "i": {}, "if": {}, "in": {},
	"into": {}, "is": {}, "it": {}, "its": {}, "itself": {}, "just": {}, "let": {},
	"like": {}, "may": {}, "me": {}, "might": {}, "more": {}, "most": {}, "much": {},
	"must": {}, "my": {}, "myself": {}, "neither": {}, "no": {}, "nor": {}, "not": {},
	"now": {}, "of": {}, "off": {}, "often": {}, "on": {}, "once": {}, "only": {},
	"or": {}, "other": {}, "ought": {}, "our": {}, "ours": {}, "ourselves": {}, "out": {},
	"over": {}, "own": {}, "please": {}, "same": {}, "shall": {}, "she": {}, "should": {},
	"since": {}, "so": {}, "some": {}, "such": {}, "than": {}, "that": {}, "the": {},
	"their": {}, "theirs": {}, "them": {}, "themselves": {}, "then": {}, "there": {},
	"these": {}, "they": {}, "this": {}, "those": {}, "through": {}, "thus": {}, "to": {},
	"too": {}, "under": {}, "until": {}, "up": {}, "upon": {}, "us": {}, "very": {},
	"was": {}, "we": {}, "were": {}, "what": {}, "when": {}, "where": {}, "whether": {},
	"which": {}, "while": {}, "who": {}, "whom": {}, "whose": {}, "why": {}, "will": {},
	"with": {}, "within": {}, "without": {}, "would": {}, "yet": {}, "you": {}, "your": {},
	"yours": {}, "yourself": {}, "yourselves": {},
}

// IsStopword reports whether word (already lowercased) is a stopword.
func IsStopword(word string) bool {
	_, ok := stopwords[word]
	return ok
}

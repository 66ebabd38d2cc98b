package session

import "strings"

// #region defaults
// DefaultTargetRoles are headline fragments worth a connection request.
var DefaultTargetRoles = []string{
	"chief data officer",
	"chief technology officer",
	"cto",
	"vp of engineering",
	"vp of data",
	"head of data",
	"head of analytics",
	"director of data",
	"director of engineering",
	"product owner",
	"engineering manager",
	"analytics director",
	"head of machine learning",
	"lead data scientist",
	"staff data scientist",
	"principal data scientist",
	"senior data scientist",
	"data science manager",
	"ml engineering lead",
	"tech lead",
	"tech recruiter",
	"technical recruiter",
	"talent acquisition",
	"hr business partner",
	"recruiting manager",
	"recruitment specialist",
}

// DefaultHighValueKeywords mark profiles worth following.
var DefaultHighValueKeywords = []string{
	"lead",
	"machine learning",
	"deep learning",
	"generative ai",
	"llms",
	"nlp",
	"data scientist",
	"ml engineer",
	"apache spark",
	"databricks",
	"cloud architect",
	"data engineer",
	"data governance",
	"software engineer",
}

// #endregion defaults

// #region matching
// MatchesAny reports whether text contains any of terms, case-insensitively.
func MatchesAny(text string, terms []string) bool {
	lower := strings.ToLower(text)
	for _, term := range terms {
		if term != "" && strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// IsTopProfile reports whether a visited profile is worth following.
func IsTopProfile(t Target, keywords []string) bool {
	return t.Top || MatchesAny(t.Headline, keywords)
}

// #endregion matching

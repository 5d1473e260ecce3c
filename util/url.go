package util

import "regexp"

var urlPattern = regexp.MustCompile(`https?://[^\s)]+`)

// ExtractURLs returns every http(s) URL found in the text, in order of
// appearance.
func ExtractURLs(text string) []string {
	return urlPattern.FindAllString(text, -1)
}

// FirstURL returns the first http(s) URL in the text, or "". Messages in a
// mirror channel carry the content URL first; later URLs are auxiliary, e.g.
// channel links.
func FirstURL(text string) string {
	return urlPattern.FindString(text)
}

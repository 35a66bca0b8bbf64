package domain

import (
	"strings"
	"unicode"
)

// NormalizeCRS reduces the common spellings of an EPSG code to "EPSG:<code>".
// "EPSG:28992", "epsg:28992", "urn:ogc:def:crs:EPSG::28992",
// "http://www.opengis.net/def/crs/EPSG/0/28992" and "28992" all normalize to
// "EPSG:28992". Anything else is trimmed and upper-cased.
func NormalizeCRS(crs string) string {
	s := strings.TrimSpace(crs)
	if s == "" {
		return ""
	}
	if isDigits(s) {
		return "EPSG:" + s
	}
	upper := strings.ToUpper(s)
	if strings.Contains(upper, "EPSG") {
		if code := trailingDigits(upper); code != "" {
			return "EPSG:" + code
		}
	}
	return upper
}

// SameCRS reports whether two non-empty CRS identifiers denote the same system.
func SameCRS(a, b string) bool {
	na, nb := NormalizeCRS(a), NormalizeCRS(b)
	return na != "" && na == nb
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

func trailingDigits(s string) string {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	return s[i:]
}

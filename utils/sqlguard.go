package utils

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

const (
	CodeMissingSQL         = "MISSING_SQL"
	CodeMultipleStatements = "MULTIPLE_STATEMENTS"
	CodeNonSelect          = "NON_SELECT"
	CodeForbiddenKeyword   = "FORBIDDEN_KEYWORD"
	CodeUnsupportedSyntax  = "UNSUPPORTED_SYNTAX"
)

// ForbiddenKeywords may not appear as a whole word outside string literals
// and comments.
var ForbiddenKeywords = []string{"DROP", "DELETE", "INSERT", "UPDATE", "ALTER", "CREATE", "TRUNCATE", "GRANT", "REVOKE"}

var forbiddenPattern = regexp.MustCompile(`(?i)\b(` + strings.Join(ForbiddenKeywords, "|") + `)\b`)

// SQLValidationError is a rejected portal statement. Status is the HTTP
// status to answer with.
type SQLValidationError struct {
	Status  int
	Code    string
	Message string
}

func (e *SQLValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ValidateSelect accepts a single SELECT (or WITH ... SELECT) statement and
// returns it without trailing semicolons.
func ValidateSelect(stmt string) (string, error) {
	stmt = strings.TrimSpace(stmt)
	for strings.HasSuffix(stmt, ";") {
		stmt = strings.TrimSpace(strings.TrimSuffix(stmt, ";"))
	}
	code, err := stripLiterals(stmt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(code) == "" {
		return "", &SQLValidationError{Status: http.StatusBadRequest, Code: CodeMissingSQL, Message: "A SQL statement is required"}
	}
	if strings.Contains(code, ";") {
		return "", &SQLValidationError{Status: http.StatusBadRequest, Code: CodeMultipleStatements, Message: "Only one statement may be executed at a time"}
	}
	first := strings.ToUpper(strings.Fields(code)[0])
	if first != "SELECT" && first != "WITH" {
		return "", &SQLValidationError{Status: http.StatusForbidden, Code: CodeNonSelect, Message: "Only SELECT statements are allowed"}
	}
	if kw := forbiddenPattern.FindString(code); kw != "" {
		return "", &SQLValidationError{Status: http.StatusForbidden, Code: CodeForbiddenKeyword, Message: fmt.Sprintf("%s is not allowed", strings.ToUpper(kw))}
	}
	return stmt, nil
}

// stripLiterals blanks out quoted strings, dollar-quoted bodies, quoted
// identifiers and comments so that keyword and separator checks only see SQL
// code. Backslashes inside string literals and unterminated quotes or
// comments are rejected.
func stripLiterals(s string) (string, error) {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'' || c == '"':
			j := i + 1
			for ; j < len(s); j++ {
				if c == '\'' && s[j] == '\\' {
					return "", unsupported("backslash escapes in string literals are not supported")
				}
				if s[j] == c {
					if j+1 < len(s) && s[j+1] == c {
						j++
						continue
					}
					break
				}
			}
			if j >= len(s) {
				return "", unsupported("unterminated quoted string")
			}
			b.WriteByte(' ')
			i = j
		case c == '$' && (i == 0 || !isIdentByte(s[i-1])):
			tag, ok := dollarTag(s[i:])
			if !ok {
				b.WriteByte(c)
				continue
			}
			end := strings.Index(s[i+len(tag):], tag)
			if end < 0 {
				return "", unsupported("unterminated dollar-quoted string")
			}
			b.WriteByte(' ')
			i += 2*len(tag) + end - 1
		case c == '-' && i+1 < len(s) && s[i+1] == '-':
			for i < len(s) && s[i] != '\n' {
				i++
			}
			b.WriteByte(' ')
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				return "", unsupported("unterminated block comment")
			}
			i += end + 3
			b.WriteByte(' ')
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

// dollarTag returns the opening tag ($$ or $name$) at the start of s.
// Positional parameters such as $1 are not tags.
func dollarTag(s string) (string, bool) {
	for j := 1; j < len(s); j++ {
		switch c := s[j]; {
		case c == '$':
			return s[:j+1], true
		case c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80:
		case c >= '0' && c <= '9' && j > 1:
		default:
			return "", false
		}
	}
	return "", false
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c >= 0x80
}

func unsupported(msg string) error {
	return &SQLValidationError{Status: http.StatusBadRequest, Code: CodeUnsupportedSyntax, Message: msg}
}

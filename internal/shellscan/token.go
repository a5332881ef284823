package shellscan

import "strings"

// TokenKind classifies a token in the flat token stream.
type TokenKind int

const (
	// TokenWord is a command name, argument, or any other non-operator text.
	TokenWord TokenKind = iota
	// TokenPipe is an unquoted |.
	TokenPipe
	// TokenOr is an unquoted ||.
	TokenOr
	// TokenAnd is an unquoted &&.
	TokenAnd
	// TokenSeq is an unquoted ;.
	TokenSeq
	// TokenRedirectIn is an unquoted <.
	TokenRedirectIn
	// TokenRedirectOut is an unquoted >.
	TokenRedirectOut
	// TokenRedirectAppend is an unquoted >>.
	TokenRedirectAppend
)

// Token is one element of the flat token stream produced by Tokenize.
type Token struct {
	Kind TokenKind
	Text string
}

// IsSeparator reports whether the token splits the stream into a new
// sub-command group. Redirections are not separators: they stay inside the
// group together with their target.
func (t Token) IsSeparator() bool {
	switch t.Kind {
	case TokenPipe, TokenOr, TokenAnd, TokenSeq:
		return true
	}
	return false
}

type lexState int

const (
	stateUnquoted lexState = iota
	stateSingle
	stateDouble
)

// Tokenize lexes a full shell command line into one flat token stream before
// any interpretation. The ordering is the load-bearing invariant: quoting is
// resolved for the whole line first, so an operator inside quotes is literal
// text and quoted punctuation can never be misparsed as a real operator.
//
// Three states are tracked (unquoted, single-quoted, double-quoted) plus a
// one-character escape: a backslash outside single quotes makes the next
// character literal. Quote characters toggle state and are consumed, not
// emitted. Outside quotes, whitespace ends the current token and the
// operators | || && ; < > >> are emitted as their own tokens, longest match
// first.
func Tokenize(command string) []Token {
	var (
		tokens  []Token
		cur     strings.Builder
		started bool // a token is in progress, even if still empty ('' or "")
		state   = stateUnquoted
		escaped bool
	)

	flush := func() {
		if started {
			tokens = append(tokens, Token{Kind: TokenWord, Text: cur.String()})
			cur.Reset()
			started = false
		}
	}
	emit := func(kind TokenKind, text string) {
		flush()
		tokens = append(tokens, Token{Kind: kind, Text: text})
	}

	for i := 0; i < len(command); i++ {
		c := command[i]

		if escaped {
			cur.WriteByte(c)
			started = true
			escaped = false
			continue
		}

		switch state {
		case stateSingle:
			if c == '\'' {
				state = stateUnquoted
			} else {
				cur.WriteByte(c)
				started = true
			}

		case stateDouble:
			switch c {
			case '\\':
				escaped = true
				started = true
			case '"':
				state = stateUnquoted
			default:
				cur.WriteByte(c)
				started = true
			}

		default: // stateUnquoted
			switch c {
			case '\\':
				escaped = true
				started = true
			case '\'':
				state = stateSingle
				started = true
			case '"':
				state = stateDouble
				started = true
			case ' ', '\t', '\n':
				flush()
			case '|':
				if i+1 < len(command) && command[i+1] == '|' {
					emit(TokenOr, "||")
					i++
				} else {
					emit(TokenPipe, "|")
				}
			case '&':
				// && only when both characters are present; a lone & is not
				// one of the four separators and stays literal.
				if i+1 < len(command) && command[i+1] == '&' {
					emit(TokenAnd, "&&")
					i++
				} else {
					cur.WriteByte(c)
					started = true
				}
			case ';':
				emit(TokenSeq, ";")
			case '<':
				emit(TokenRedirectIn, "<")
			case '>':
				if i+1 < len(command) && command[i+1] == '>' {
					emit(TokenRedirectAppend, ">>")
					i++
				} else {
					emit(TokenRedirectOut, ">")
				}
			default:
				cur.WriteByte(c)
				started = true
			}
		}
	}
	// Unterminated quote or trailing escape: keep what was accumulated so the
	// partial token is still analyzed rather than dropped.
	flush()

	return tokens
}

// SplitGroups splits the flat token stream into sub-command groups at the
// four separator operators. Separator tokens themselves are dropped; empty
// groups (e.g. from "cmd1 ;; cmd2") are skipped.
func SplitGroups(tokens []Token) [][]Token {
	var groups [][]Token
	var cur []Token
	for _, tok := range tokens {
		if tok.IsSeparator() {
			if len(cur) > 0 {
				groups = append(groups, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, tok)
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}
	return groups
}

package memes

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// IsValidName reports whether name can be used as a blob key.
// Names are flat: a name is rejected when it
//   - is empty, "." or ".."
//   - contains a path separator ("/" or "\")
//   - is not valid UTF-8
//   - contains a null byte, a control character or DEL
//   - starts or ends with whitespace
//
// Interior spaces are allowed since uploaded file names commonly carry them.
func IsValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}

	if strings.ContainsAny(name, `/\`) {
		return false
	}

	if !utf8.ValidString(name) {
		return false
	}

	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}

	first, _ := utf8.DecodeRuneInString(name)
	last, _ := utf8.DecodeLastRuneInString(name)
	if unicode.IsSpace(first) || unicode.IsSpace(last) {
		return false
	}

	return true
}

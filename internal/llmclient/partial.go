package llmclient

import (
	"bytes"
	"encoding/json"
	"strings"
)

// CompleteTruncated turns the prefix of a streamed JSON document into a
// parseable snapshot: it closes an unterminated string, drops dangling
// commas and valueless keys, and closes any open objects and arrays.
// Returns nil when no valid document can be recovered.
//
// A string value cut mid-way comes back truncated, which is exactly what the
// live-updating document model wants while html/css are still streaming.
func CompleteTruncated(data []byte) []byte {
	start := bytes.IndexAny(data, "{[")
	if start < 0 {
		return nil
	}
	data = data[start:]

	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(data); i++ {
		c := data[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	buf := append([]byte(nil), data...)
	if escaped {
		buf = buf[:len(buf)-1] // trailing backslash of a cut escape
	}
	if inString {
		buf = append(buf, '"')
	}
	var top byte
	if len(stack) > 0 {
		top = stack[len(stack)-1]
	}
	buf = fixTail(buf, top)
	if out := closeAll(buf, stack); out != nil {
		return out
	}
	// A cut bare literal (tru, nul, 12e) survives fixTail; drop it and the
	// key it belonged to, then retry.
	trimmed := bytes.TrimRight(buf, "0123456789+-.eEtruefalsnil")
	if len(trimmed) == len(buf) {
		return nil
	}
	return closeAll(fixTail(trimmed, top), stack)
}

func closeAll(buf []byte, stack []byte) []byte {
	out := append([]byte(nil), buf...)
	for i := len(stack) - 1; i >= 0; i-- {
		switch stack[i] {
		case '{':
			out = append(out, '}')
		case '[':
			out = append(out, ']')
		}
	}
	if !json.Valid(out) {
		return nil
	}
	return out
}

// fixTail trims the tail of the innermost open container down to its last
// complete member. top is the container's opening bracket (zero when the
// document closed cleanly).
func fixTail(buf []byte, top byte) []byte {
	for {
		buf = bytes.TrimRight(buf, " \t\r\n")
		if len(buf) == 0 {
			return buf
		}
		switch buf[len(buf)-1] {
		case ',':
			buf = buf[:len(buf)-1]
			continue
		case ':':
			// Valueless key: drop the colon, then the key string.
			buf = dropTrailingString(buf[:len(buf)-1])
			continue
		case '"':
			// In an object a trailing string may be a key whose colon never
			// arrived. A value keeps its leading ':'.
			if top != '{' {
				return buf
			}
			head := bytes.TrimRight(dropTrailingString(buf), " \t\r\n")
			if len(head) > 0 && head[len(head)-1] == ':' {
				return buf // complete key:value pair
			}
			buf = head
			continue
		default:
			return buf
		}
	}
}

// dropTrailingString removes a trailing quoted string, honoring escapes.
func dropTrailingString(buf []byte) []byte {
	buf = bytes.TrimRight(buf, " \t\r\n")
	if len(buf) == 0 || buf[len(buf)-1] != '"' {
		return buf
	}
	for i := len(buf) - 2; i >= 0; i-- {
		if buf[i] != '"' {
			continue
		}
		backslashes := 0
		for j := i - 1; j >= 0 && buf[j] == '\\'; j-- {
			backslashes++
		}
		if backslashes%2 == 0 {
			return buf[:i]
		}
	}
	return buf
}

// DecodePartial repairs raw and unmarshals it into v. Reports whether a
// usable snapshot was decoded.
func DecodePartial(raw []byte, v any) bool {
	fixed := CompleteTruncated(raw)
	if fixed == nil {
		return false
	}
	return json.Unmarshal(fixed, v) == nil
}

// StripCodeFence removes a markdown code fence around a JSON payload, which
// some models emit despite the structured-output instruction.
func StripCodeFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return s
	}
	t = strings.TrimPrefix(t, "```")
	if i := strings.IndexByte(t, '\n'); i >= 0 && !strings.ContainsAny(t[:i], "{[") {
		t = t[i+1:]
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}

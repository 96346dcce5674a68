package incident

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

var (
	errRecipientBlank = errors.New("email addresses must be non-empty strings")
	errRecipientShape = errors.New("must be string or list of strings")
	errListItemType   = errors.New("list items must be strings")
	errListShape      = errors.New("must be a list of strings")
)

// Recipients is an email address list. A bare JSON string decodes to a
// one-element list; every element is trimmed and blank elements are rejected.
type Recipients []string

func (r *Recipients) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*r = nil
		return nil
	}
	var single string
	if err := json.Unmarshal(trimmed, &single); err == nil {
		single = strings.TrimSpace(single)
		if single == "" {
			return &ValidationError{Fields: []string{"recipients: email address cannot be empty"}}
		}
		*r = Recipients{single}
		return nil
	}
	var items []any
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return &ValidationError{Fields: []string{"recipients: " + errRecipientShape.Error()}}
	}
	out := make(Recipients, 0, len(items))
	for _, item := range items {
		value, ok := item.(string)
		if !ok || strings.TrimSpace(value) == "" {
			return &ValidationError{Fields: []string{"recipients: " + errRecipientBlank.Error()}}
		}
		out = append(out, strings.TrimSpace(value))
	}
	*r = out
	return nil
}

func (r Recipients) clone() Recipients {
	if r == nil {
		return nil
	}
	return append(Recipients(nil), r...)
}

// StringList is a list of trimmed, non-empty strings. null and absent decode
// to an empty list; it always encodes as a JSON array.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*l = StringList{}
		return nil
	}
	var items []any
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return &ValidationError{Fields: []string{"list: " + errListShape.Error()}}
	}
	out := make(StringList, 0, len(items))
	for _, item := range items {
		value, ok := item.(string)
		if !ok {
			return &ValidationError{Fields: []string{"list: " + errListItemType.Error()}}
		}
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}
	*l = out
	return nil
}

func (l StringList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

func (l StringList) clone() StringList {
	if l == nil {
		return StringList{}
	}
	return append(StringList{}, l...)
}

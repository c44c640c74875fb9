package model

import "strings"

// Tag represents a parsed jrecord struct tag, e.g. `jrecord:"song,omitempty"`.
type Tag struct {
	Name      string
	Skip      bool
	OmitEmpty bool
}

// ParseTag parses the "jrecord" tag string
func ParseTag(tagStr string) *Tag {
	tag := &Tag{}
	tagStr = strings.TrimSpace(tagStr)
	if tagStr == "" {
		return tag
	}
	if tagStr == "-" {
		tag.Skip = true
		return tag
	}

	parts := strings.Split(tagStr, ",")
	tag.Name = strings.TrimSpace(parts[0])
	for _, part := range parts[1:] {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "omitempty":
			tag.OmitEmpty = true
		}
	}
	return tag
}

package usecase

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultStackPrefix   = "diagram2code"
	DefaultStackModelTag = "claude3"

	maxStackNameLength = 128
	// MaxStackModelTagLength keeps the suffix short enough to leave room for a prefix.
	MaxStackModelTagLength = 32

	fallbackStackPrefix = "s"
)

var invalidStackChars = regexp.MustCompile(`[^A-Za-z0-9-]+`)

// StackNamer builds stack names of the form <prefix>-<unix millis>-<tag>-<uuid>.
// The random part makes every name unique; the prefix is shortened, never the suffix,
// when the result would exceed the CloudFormation length limit.
type StackNamer struct {
	prefix string
	tag    string
	now    func() time.Time
	newID  func() string
}

func NewStackNamer(prefix, tag string) *StackNamer {
	return &StackNamer{
		prefix: sanitizePrefix(prefix),
		tag:    sanitizeTag(tag),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

func (n *StackNamer) Next() string {
	suffix := "-" + strconv.FormatInt(n.now().UnixMilli(), 10)
	if n.tag != "" {
		suffix += "-" + n.tag
	}
	suffix += "-" + n.newID()

	prefix := n.prefix
	if over := len(prefix) + len(suffix) - maxStackNameLength; over > 0 {
		keep := len(prefix) - over
		if keep < 0 {
			keep = 0
		}
		prefix = strings.TrimRight(prefix[:keep], "-")
		if prefix == "" {
			prefix = fallbackStackPrefix
			if over := len(prefix) + len(suffix) - maxStackNameLength; over > 0 {
				suffix = strings.TrimRight(suffix[:len(suffix)-over], "-")
			}
		}
	}
	return prefix + suffix
}

func sanitizeTag(tag string) string {
	tag = strings.Trim(invalidStackChars.ReplaceAllString(tag, "-"), "-")
	if len(tag) > MaxStackModelTagLength {
		tag = strings.TrimRight(tag[:MaxStackModelTagLength], "-")
	}
	return tag
}

// stack names must start with a letter
func sanitizePrefix(prefix string) string {
	prefix = strings.Trim(invalidStackChars.ReplaceAllString(prefix, "-"), "-")
	if prefix == "" {
		return DefaultStackPrefix
	}
	if c := prefix[0]; !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
		prefix = "stack-" + prefix
	}
	return prefix
}

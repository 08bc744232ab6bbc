package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateID validates a node, edge, group or project identifier.
//
// The rules are intentionally conservative:
//   - No empty IDs
//   - No control characters
//   - Maximum length of 128 characters
func ValidateID(kind, id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "%s ID cannot be empty", kind)
	}
	if len(id) > 128 {
		return New(ErrCodeInvalidInput, "%s ID too long (max 128 characters)", kind)
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "%s ID contains invalid control characters", kind)
		}
	}
	return nil
}

// projectIDRegex matches project IDs that are safe as file names and store keys.
var projectIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateProjectID validates a project ID. Project IDs double as directory
// names for the file store, so path separators and traversal are rejected.
func ValidateProjectID(id string) error {
	if err := ValidateID("project", id); err != nil {
		return err
	}
	if strings.Contains(id, "..") {
		return New(ErrCodeInvalidInput, "project ID cannot contain path traversal sequences (..)")
	}
	if !projectIDRegex.MatchString(id) {
		return New(ErrCodeInvalidInput, "invalid project ID: %q", id)
	}
	return nil
}

// ValidateTag validates a single card tag. Tags are joined with ';' in CSV
// exports, so the separator is not allowed inside a tag.
func ValidateTag(tag string) error {
	if strings.TrimSpace(tag) == "" {
		return New(ErrCodeInvalidInput, "tag cannot be empty")
	}
	if len(tag) > 64 {
		return New(ErrCodeInvalidInput, "tag too long (max 64 characters): %q", tag)
	}
	if strings.ContainsAny(tag, ";\n\r") {
		return New(ErrCodeInvalidInput, "tag contains invalid characters: %q", tag)
	}
	return nil
}

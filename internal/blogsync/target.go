package blogsync

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
)

const (
	// DefaultBranchPrefix prefixes every sync branch.
	DefaultBranchPrefix = "blog-at-issue/"

	templateRequiredMessageConstant   = "file path template required"
	placeholderMissingMessageConstant = "file path template must contain a {title} placeholder"
	emptyTargetMessageConstant        = "resolved file path is empty"
	absoluteTargetMessageConstant     = "resolved file path must be relative to the repository root"
	escapingTargetMessageConstant     = "resolved file path escapes the repository root"
	// git rejects these bytes anywhere in a ref name; '%' is escaped so the encoding stays reversible.
	forbiddenRefCharactersConstant = " ~^:?*[\\%"
	refEscapeTemplateConstant      = "%%%02X"
	refLockSuffixConstant          = ".lock"
	pathSeparatorConstant          = "/"
)

var (
	// ErrFilePathTemplateRequired indicates an empty file path template.
	ErrFilePathTemplateRequired = errors.New(templateRequiredMessageConstant)
	// ErrTitlePlaceholderMissing indicates a template that cannot vary with the issue title.
	ErrTitlePlaceholderMissing = errors.New(placeholderMissingMessageConstant)
	// ErrEmptyTarget indicates a template and title that resolve to nothing.
	ErrEmptyTarget = errors.New(emptyTargetMessageConstant)
	// ErrAbsoluteTarget indicates a resolved path rooted outside the working tree.
	ErrAbsoluteTarget = errors.New(absoluteTargetMessageConstant)
	// ErrEscapingTarget indicates a resolved path that climbs out of the working tree.
	ErrEscapingTarget = errors.New(escapingTargetMessageConstant)
)

var (
	titlePlaceholderPattern = regexp.MustCompile(`\{\s*title\s*\}`)
)

// Target is the post location and the branch that carries it.
type Target struct {
	Path       string
	BranchName string
}

// ResolveTarget substitutes every {title} placeholder in template with title.
func ResolveTarget(template string, title string) (string, error) {
	trimmedTemplate := strings.TrimSpace(template)
	if len(trimmedTemplate) == 0 {
		return "", ErrFilePathTemplateRequired
	}
	if !titlePlaceholderPattern.MatchString(trimmedTemplate) {
		return "", ErrTitlePlaceholderMissing
	}

	resolved := titlePlaceholderPattern.ReplaceAllLiteralString(trimmedTemplate, title)
	if len(strings.TrimSpace(resolved)) == 0 {
		return "", ErrEmptyTarget
	}
	if strings.HasPrefix(resolved, "/") {
		return "", ErrAbsoluteTarget
	}
	cleaned := path.Clean(resolved)
	if cleaned == "." {
		return "", ErrEmptyTarget
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrEscapingTarget
	}
	return resolved, nil
}

// BranchName returns prefix followed by filePath, with every byte git rejects in a ref name
// percent-encoded. Distinct files always map to distinct branches.
func BranchName(prefix string, filePath string) string {
	if len(strings.TrimSpace(prefix)) == 0 {
		prefix = DefaultBranchPrefix
	}
	components := strings.Split(path.Clean(filePath), pathSeparatorConstant)
	for index, component := range components {
		components[index] = encodeRefComponent(component)
	}
	return prefix + strings.Join(components, pathSeparatorConstant)
}

func encodeRefComponent(component string) string {
	var builder strings.Builder
	for index := 0; index < len(component); index++ {
		if refByteNeedsEscape(component, index) {
			fmt.Fprintf(&builder, refEscapeTemplateConstant, component[index])
			continue
		}
		builder.WriteByte(component[index])
	}
	return builder.String()
}

// refByteNeedsEscape covers the git check-ref-format rules for a single path component:
// no control or forbidden characters, no leading or trailing dot, no "..", no "@{" and no ".lock" suffix.
func refByteNeedsEscape(component string, index int) bool {
	character := component[index]
	switch {
	case character < 0x20 || character == 0x7f:
		return true
	case strings.IndexByte(forbiddenRefCharactersConstant, character) >= 0:
		return true
	case character == '.':
		return index == 0 ||
			index == len(component)-1 ||
			component[index-1] == '.' ||
			component[index:] == refLockSuffixConstant
	case character == '{':
		return index > 0 && component[index-1] == '@'
	default:
		return false
	}
}

// NewTarget resolves the post path and its sync branch for title.
func NewTarget(template string, title string, branchPrefix string) (Target, error) {
	resolvedPath, resolveError := ResolveTarget(template, title)
	if resolveError != nil {
		return Target{}, resolveError
	}
	return Target{Path: resolvedPath, BranchName: BranchName(branchPrefix, resolvedPath)}, nil
}

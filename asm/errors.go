package asm

import "fmt"

// ErrorKind is the five-way error taxonomy from spec.md §7.
type ErrorKind uint8

const (
	KindSyntax ErrorKind = iota
	KindStructural
	KindSemantic
	KindCircularInclude
	KindImage
)

func (k ErrorKind) String() string {
	switch k {
	case KindSyntax:
		return "SyntaxError"
	case KindStructural:
		return "StructuralError"
	case KindSemantic:
		return "SemanticError"
	case KindCircularInclude:
		return "CircularIncludeError"
	case KindImage:
		return "ImageError"
	default:
		return "UnknownError"
	}
}

// AssemblyError is the single error type every pipeline phase returns,
// analogous to the teacher's small set of package-level sentinel errors
// but carrying dynamic line/message context the way a real assembler must.
type AssemblyError struct {
	Kind    ErrorKind
	Line    int // 0 means "no associated line"
	Message string
}

func (e *AssemblyError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s at line %d: %s", e.Kind, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newSyntaxError(line int, format string, args ...any) *AssemblyError {
	return &AssemblyError{Kind: KindSyntax, Line: line, Message: fmt.Sprintf(format, args...)}
}

func newStructuralError(line int, format string, args ...any) *AssemblyError {
	return &AssemblyError{Kind: KindStructural, Line: line, Message: fmt.Sprintf(format, args...)}
}

func newSemanticError(line int, format string, args ...any) *AssemblyError {
	return &AssemblyError{Kind: KindSemantic, Line: line, Message: fmt.Sprintf(format, args...)}
}

func newCircularIncludeError(path string, stack []string) *AssemblyError {
	return &AssemblyError{
		Kind:    KindCircularInclude,
		Message: fmt.Sprintf("%q already included via %v", path, stack),
	}
}

// ImageDimensionError is a narrower ImageError raised when a tile-codec
// request falls outside the source image bounds or isn't 8-aligned.
func newImageDimensionError(format string, args ...any) *AssemblyError {
	return &AssemblyError{Kind: KindImage, Message: fmt.Sprintf(format, args...)}
}

func newImageError(format string, args ...any) *AssemblyError {
	return &AssemblyError{Kind: KindImage, Message: fmt.Sprintf(format, args...)}
}

// NewImageDimensionError lets the tilecodec package raise a KindImage error
// without inventing a second error type for the same taxonomy.
func NewImageDimensionError(format string, args ...any) *AssemblyError {
	return newImageDimensionError(format, args...)
}

// NewImageError wraps a lower-level image decode failure as a KindImage
// AssemblyError.
func NewImageError(format string, args ...any) *AssemblyError {
	return newImageError(format, args...)
}

package errors

import "fmt"

// SizeMismatchError reports a visual whose dimensions do not fit a banner
// size. It carries both the expected and the offending dimensions so the
// notice shown to the user can name them.
type SizeMismatchError struct {
	SizeID         string
	Name           string
	ExpectedWidth  int
	ExpectedHeight int
	ActualWidth    int
	ActualHeight   int
	Exact          bool
}

func (e *SizeMismatchError) Error() string {
	subject := "visual image"
	if e.Name != "" {
		subject = fmt.Sprintf("visual image %q", e.Name)
	}
	if e.Exact {
		return fmt.Sprintf("%s is %dx%d, expected exactly %dx%d for size %s",
			subject, e.ActualWidth, e.ActualHeight, e.ExpectedWidth, e.ExpectedHeight, e.SizeID)
	}
	return fmt.Sprintf("%s is %dx%d, expected %dx%d or the same aspect ratio for size %s",
		subject, e.ActualWidth, e.ActualHeight, e.ExpectedWidth, e.ExpectedHeight, e.SizeID)
}

// Code returns ErrCodeSizeMismatch.
func (e *SizeMismatchError) Code() Code {
	return ErrCodeSizeMismatch
}

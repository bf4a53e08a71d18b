package validation

import (
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"querydesk/internal/extract"
	"querydesk/internal/models"
)

// Limits on user-provided fields.
const (
	MaxQueryRunes       = 4000
	MaxResponseRunes    = 8000
	MaxSubjectNameRunes = 200
	MaxSeedKeywords     = 200
	MaxFilenameBytes    = 255
)

// SubjectCodePattern is a course code such as CS301 or UE20CS302.
var SubjectCodePattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{1,19}$`)

// SRNPattern is a student registration number such as PES1UG22CS001.
var SRNPattern = regexp.MustCompile(`^[A-Z0-9]{4,20}$`)

// SectionPattern is a class section label such as A or B2.
var SectionPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]?$`)

// NormalizeCode uppercases and trims a subject code or SRN.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateSubjectCode checks an already normalized subject code.
func ValidateSubjectCode(code string) bool {
	return SubjectCodePattern.MatchString(code)
}

// ValidateSRN checks an already normalized SRN.
func ValidateSRN(srn string) bool {
	return SRNPattern.MatchString(srn)
}

// ValidateSection checks an already normalized section label.
func ValidateSection(section string) bool {
	return SectionPattern.MatchString(section)
}

// ValidateJoiningYear checks a two-digit joining year.
func ValidateJoiningYear(year int) bool {
	return year >= 0 && year <= 99
}

// ValidateSemester checks a semester number.
func ValidateSemester(semester int) bool {
	return semester >= 1 && semester <= 12
}

// ValidateSubjectName checks a subject's display name.
func ValidateSubjectName(name string) (bool, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, "Name is required"
	}
	if utf8.RuneCountInString(name) > MaxSubjectNameRunes {
		return false, "Name is too long"
	}
	return true, ""
}

// ValidateText checks free text submitted as a query or response.
func ValidateText(text string, maxRunes int) (bool, string) {
	if strings.TrimSpace(text) == "" {
		return false, "Text is required"
	}
	if !utf8.ValidString(text) {
		return false, "Text must be valid UTF-8"
	}
	if utf8.RuneCountInString(text) > maxRunes {
		return false, "Text is too long"
	}
	return true, ""
}

// NormalizeCategory lowercases a category and defaults it to academics.
func NormalizeCategory(category string) string {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return models.CategoryAcademics
	}
	return category
}

// ValidateCategories checks that every category is known and not academics,
// which is assigned through teaching assignments instead.
func ValidateCategories(categories []string) (bool, string) {
	for _, c := range categories {
		if !models.ValidCategory(c) {
			return false, "Unknown category: " + c
		}
		if c == models.CategoryAcademics {
			return false, "Academic eligibility comes from teaching assignments"
		}
	}
	return true, ""
}

// ValidateUpload checks an uploaded file's name and size and returns its kind.
func ValidateUpload(filename string, size, maxBytes int64, allowedKinds []string) (string, string) {
	name := filepath.Base(filename)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", "File name is required"
	}
	if len(name) > MaxFilenameBytes {
		return "", "File name is too long"
	}
	if size <= 0 {
		return "", "File is empty"
	}
	if size > maxBytes {
		return "", "File exceeds the upload size limit"
	}
	kind := extract.KindFromFilename(name)
	if !slices.Contains(allowedKinds, kind) {
		return "", "Unsupported file type; allowed: " + strings.Join(allowedKinds, ", ")
	}
	return kind, ""
}

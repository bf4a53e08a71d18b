package validation

import (
	"strings"
	"testing"

	"querydesk/internal/models"
)

func TestValidateSubjectCode(t *testing.T) {
	tests := []struct {
		name string
		code string
		want bool
	}{
		{"simple", "CS301", true},
		{"with hyphen", "UE20-CS302", true},
		{"two chars", "CS", true},
		{"single char", "C", false},
		{"lowercase", "cs301", false},
		{"empty", "", false},
		{"leading hyphen", "-CS301", false},
		{"space", "CS 301", false},
		{"too long", strings.Repeat("A", 21), false},
		{"max length", strings.Repeat("A", 20), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateSubjectCode(tt.code); got != tt.want {
				t.Errorf("ValidateSubjectCode(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestNormalizeCode(t *testing.T) {
	if got := NormalizeCode("  pes1ug22cs001 "); got != "PES1UG22CS001" {
		t.Errorf("NormalizeCode() = %q", got)
	}
}

func TestValidateSRN(t *testing.T) {
	tests := []struct {
		srn  string
		want bool
	}{
		{"PES1UG22CS001", true},
		{"ABCD", true},
		{"ABC", false},
		{"PES1-UG22", false},
		{"", false},
		{strings.Repeat("9", 21), false},
	}

	for _, tt := range tests {
		if got := ValidateSRN(tt.srn); got != tt.want {
			t.Errorf("ValidateSRN(%q) = %v, want %v", tt.srn, got, tt.want)
		}
	}
}

func TestValidateSection(t *testing.T) {
	for _, s := range []string{"A", "B2", "H"} {
		if !ValidateSection(s) {
			t.Errorf("ValidateSection(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"", "a", "2A", "ABC"} {
		if ValidateSection(s) {
			t.Errorf("ValidateSection(%q) = true, want false", s)
		}
	}
}

func TestValidateJoiningYearAndSemester(t *testing.T) {
	if !ValidateJoiningYear(0) || !ValidateJoiningYear(99) || ValidateJoiningYear(100) || ValidateJoiningYear(-1) {
		t.Error("ValidateJoiningYear bounds are wrong")
	}
	if !ValidateSemester(1) || !ValidateSemester(12) || ValidateSemester(0) || ValidateSemester(13) {
		t.Error("ValidateSemester bounds are wrong")
	}
}

func TestValidateSubjectName(t *testing.T) {
	if ok, _ := ValidateSubjectName("Operating Systems"); !ok {
		t.Error("expected valid name")
	}
	if ok, msg := ValidateSubjectName("   "); ok || msg != "Name is required" {
		t.Errorf("blank name: ok=%v msg=%q", ok, msg)
	}
	if ok, msg := ValidateSubjectName(strings.Repeat("x", MaxSubjectNameRunes+1)); ok || msg != "Name is too long" {
		t.Errorf("long name: ok=%v msg=%q", ok, msg)
	}
}

func TestValidateText(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		valid   bool
		wantMsg string
	}{
		{"normal", "My process keeps deadlocking", true, ""},
		{"blank", " \n\t", false, "Text is required"},
		{"invalid utf8", "bad \xff byte", false, "Text must be valid UTF-8"},
		{"exactly max runes", strings.Repeat("é", MaxQueryRunes), true, ""},
		{"too long", strings.Repeat("é", MaxQueryRunes+1), false, "Text is too long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, msg := ValidateText(tt.text, MaxQueryRunes)
			if ok != tt.valid {
				t.Errorf("ValidateText() valid = %v, want %v", ok, tt.valid)
			}
			if msg != tt.wantMsg {
				t.Errorf("ValidateText() msg = %q, want %q", msg, tt.wantMsg)
			}
		})
	}
}

func TestNormalizeCategory(t *testing.T) {
	tests := map[string]string{
		"":             models.CategoryAcademics,
		"  ":           models.CategoryAcademics,
		"Sports":       models.CategorySports,
		" PLACEMENTS ": models.CategoryPlacements,
		"unknown":      "unknown",
	}
	for in, want := range tests {
		if got := NormalizeCategory(in); got != want {
			t.Errorf("NormalizeCategory(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateCategories(t *testing.T) {
	if ok, _ := ValidateCategories([]string{models.CategorySports, models.CategoryClubs}); !ok {
		t.Error("expected valid categories")
	}
	if ok, _ := ValidateCategories(nil); !ok {
		t.Error("empty categories should be valid")
	}
	if ok, msg := ValidateCategories([]string{"chess"}); ok || msg != "Unknown category: chess" {
		t.Errorf("unknown category: ok=%v msg=%q", ok, msg)
	}
	if ok, _ := ValidateCategories([]string{models.CategoryAcademics}); ok {
		t.Error("academics should not be a staff category")
	}
}

func TestValidateUpload(t *testing.T) {
	allowed := []string{"pdf", "docx", "pptx", "txt"}
	const max = 10 << 20

	tests := []struct {
		name     string
		filename string
		size     int64
		wantKind string
		wantMsg  string
	}{
		{"pdf", "syllabus.pdf", 1024, "pdf", ""},
		{"uppercase extension", "Notes.DOCX", 1024, "docx", ""},
		{"path is stripped", "../../etc/unit1.txt", 10, "txt", ""},
		{"pptx allowed", "slides.pptx", 10, "pptx", ""},
		{"empty file", "a.pdf", 0, "", "File is empty"},
		{"too large", "a.pdf", max + 1, "", "File exceeds the upload size limit"},
		{"at limit", "a.pdf", max, "pdf", ""},
		{"unsupported", "photo.png", 10, "", "Unsupported file type; allowed: pdf, docx, pptx, txt"},
		{"no extension", "README", 10, "", "Unsupported file type; allowed: pdf, docx, pptx, txt"},
		{"no name", "", 10, "", "File name is required"},
		{"long name", strings.Repeat("a", 300) + ".pdf", 10, "", "File name is too long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, msg := ValidateUpload(tt.filename, tt.size, max, allowed)
			if kind != tt.wantKind || msg != tt.wantMsg {
				t.Errorf("ValidateUpload(%q) = (%q, %q), want (%q, %q)", tt.filename, kind, msg, tt.wantKind, tt.wantMsg)
			}
		})
	}
}

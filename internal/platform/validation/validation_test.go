package validation

import (
	"testing"

	"github.com/medici/medici/internal/platform/apperr"
)

type contactForm struct {
	Name  string
	Email string
}

var contactRules = Rules[contactForm]{
	"name": func(f contactForm) string {
		if Blank(f.Name) {
			return "name is required"
		}
		return ""
	},
	"email": func(f contactForm) string {
		if !Email(f.Email) {
			return "enter a valid email"
		}
		return ""
	},
}

func TestRules_AllValid(t *testing.T) {
	errs := contactRules.Validate(contactForm{Name: "Ana", Email: "ana@example.pt"})
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if errs.Err() != nil {
		t.Error("expected nil error for valid form")
	}
}

func TestRules_ReportsEveryField(t *testing.T) {
	errs := contactRules.Validate(contactForm{Name: "  ", Email: "nope"})
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
	err := errs.Err()
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if apperr.FieldsOf(err)["email"] != "enter a valid email" {
		t.Errorf("unexpected email message: %v", apperr.FieldsOf(err))
	}
}

func TestErrors_AddKeepsFirst(t *testing.T) {
	errs := Errors{}
	errs.Add("start", "first")
	errs.Add("start", "second")
	if errs["start"] != "first" {
		t.Errorf("expected first message to win, got %q", errs["start"])
	}
}

func TestPredicates(t *testing.T) {
	if !Slug("consulta-geral") || Slug("Consulta Geral") || Slug("-x") {
		t.Error("slug predicate mismatch")
	}
	if Email("Ana <ana@example.pt>") {
		t.Error("display-name addresses should be rejected")
	}
	if !MaxLen("Braga", 5) || MaxLen("Guimarães", 5) {
		t.Error("maxlen predicate mismatch")
	}
}

func TestParseID(t *testing.T) {
	if _, err := ParseID("location_id", "0b7f3a52-6d5e-4c43-9c8b-1f3f0f6c2a10"); err != nil {
		t.Errorf("expected valid id, got %v", err)
	}
	_, err := ParseID("location_id", "braga")
	if apperr.FieldsOf(err)["location_id"] != "invalid id" {
		t.Errorf("expected location_id field error, got %v", err)
	}
}
